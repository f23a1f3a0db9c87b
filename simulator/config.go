package main

import (
	"fmt"
	"time"
)

// Config holds parameters for the simulator.
type Config struct {
	Broker         string
	Count          int
	VehicleType    string
	Jobs           int
	AckLatency     time.Duration
	DropRate       float64
	UpdateInterval time.Duration
	POICount       int
	POIInterval    time.Duration
	Verbose        bool
}

// Validate checks flag consistency.
func (c *Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if c.Count <= 0 {
		return fmt.Errorf("count must be positive")
	}
	if c.DropRate < 0 || c.DropRate > 1 {
		return fmt.Errorf("drop-rate must be within [0,1]")
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative")
	}
	return nil
}
