package config

import (
	"fmt"

	"github.com/kilianp07/groundlink/core/fleet"
)

// FleetConfig holds registry and liveness settings.
type FleetConfig struct {
	// ContactTimeoutMS is the liveness window granted to each vehicle.
	ContactTimeoutMS int `json:"contact_timeout_ms"`
	// Catalog maps vehicle-type identifiers to their capabilities.
	Catalog fleet.Catalog `json:"catalog"`
}

// SetDefaults applies sane defaults.
func (c *FleetConfig) SetDefaults() {
	if c.ContactTimeoutMS <= 0 {
		c.ContactTimeoutMS = 30000
	}
}

// Validate checks mandatory fields.
func (c FleetConfig) Validate() error {
	for name, entry := range c.Catalog {
		if entry.Jobs < 0 {
			return fmt.Errorf("catalog entry %s: jobs must not be negative", name)
		}
	}
	return nil
}

// APIConfig holds the operator HTTP API settings.
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}
