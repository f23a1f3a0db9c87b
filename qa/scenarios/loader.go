// Package scenarios runs yaml-scripted protocol exchanges against the message
// router and checks the resulting coordination state. Scenario files describe
// a fleet, a sequence of inbound messages and the expected outcome.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/groundlink/core/fleet"
	"github.com/kilianp07/groundlink/core/model"
)

// VehicleDef declares a vehicle that connects at scenario start.
type VehicleDef struct {
	ID   string `yaml:"id"`
	Jobs int    `yaml:"jobs"`
	Type string `yaml:"type,omitempty"`
}

// MessageDef is one scripted inbound message. A zero ID lets the runner assign
// the next id for the vehicle; a repeated explicit ID scripts a duplicate
// delivery.
type MessageDef struct {
	Vehicle string  `yaml:"vehicle"`
	Type    string  `yaml:"type"`
	ID      int64   `yaml:"id,omitempty"`
	Jobs    *int    `yaml:"jobs,omitempty"`
	Status  string  `yaml:"status,omitempty"`
	Battery *float64 `yaml:"battery,omitempty"`
	Lat     *float64 `yaml:"lat,omitempty"`
	Lon     *float64 `yaml:"lon,omitempty"`

	MissionData map[string]any `yaml:"mission_data,omitempty"`
}

// CatalogDef declares the allowed vehicle types.
type CatalogDef map[string]struct {
	Jobs int `yaml:"jobs"`
}

// Expected is the outcome the scenario asserts.
type Expected struct {
	Active      int `yaml:"active"`
	Acks        int `yaml:"acks"`
	BadMessages int `yaml:"bad_messages"`
	Stops       int `yaml:"stops"`
}

// Scenario is one scripted exchange.
type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Catalog     CatalogDef   `yaml:"catalog,omitempty"`
	Vehicles    []VehicleDef `yaml:"vehicles"`
	Messages    []MessageDef `yaml:"messages,omitempty"`
	Expected    Expected     `yaml:"expected"`
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	return &sc, nil
}

// ToCatalog converts the declared types to a fleet catalog.
func (c CatalogDef) ToCatalog() fleet.Catalog {
	if len(c) == 0 {
		return nil
	}
	cat := make(fleet.Catalog, len(c))
	for name, def := range c {
		cat[name] = fleet.Capability{Jobs: def.Jobs}
	}
	return cat
}

// ToModel converts a scripted message to the wire envelope.
func (d MessageDef) ToModel(id int64) model.Message {
	if d.ID != 0 {
		id = d.ID
	}
	return model.Message{
		ID:            id,
		Type:          model.MessageType(d.Type),
		VehicleID:     d.Vehicle,
		JobsAvailable: d.Jobs,
		Status:        d.Status,
		Battery:       d.Battery,
		Lat:           d.Lat,
		Lon:           d.Lon,
		MissionData:   d.MissionData,
	}
}
