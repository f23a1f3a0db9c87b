// Package plugins ships the builtin mission types and registers them on a
// mission TypeRegistry at startup.
package plugins

import (
	"fmt"

	"github.com/kilianp07/groundlink/core/logger"
	"github.com/kilianp07/groundlink/core/mission"
	"github.com/kilianp07/groundlink/core/model"
)

// RegisterBuiltins adds the builtin mission types to the registry.
func RegisterBuiltins(reg *mission.TypeRegistry, log logger.Logger) {
	reg.Register("search", func() mission.Mission {
		return NewSearchMission(log)
	})
}

// SearchMission sweeps an area with the mapped vehicles, collecting points of
// interest. It completes when every mapped vehicle reports COMPLETE, and
// yields the collected POIs plus the vehicles' mission data to the next
// mission in the schedule.
type SearchMission struct {
	*mission.Lifecycle

	log      logger.Logger
	settings map[string]any
	mapping  map[string]string
	required mission.Data

	pois      []map[string]float64
	collected map[string]any
	completed map[string]bool
}

// NewSearchMission constructs an unconfigured search mission.
func NewSearchMission(log logger.Logger) *SearchMission {
	return &SearchMission{
		Lifecycle: mission.NewLifecycle(),
		log:       log,
		collected: make(map[string]any),
		completed: make(map[string]bool),
	}
}

// SetMissionInfo stores the mission settings. A search mission requires an
// "area" entry describing the region to sweep.
func (m *SearchMission) SetMissionInfo(settings map[string]any) error {
	if m.Status() == mission.StatusRunning || m.Status() == mission.StatusComplete {
		return fmt.Errorf("search: mission info locked in %s", m.Status())
	}
	if _, ok := settings["area"]; !ok {
		if err := m.MarkNotReady(); err != nil {
			m.log.Debugf("search: %v", err)
		}
		return fmt.Errorf("search: settings require an area")
	}
	m.settings = settings
	m.checkSetup()
	return nil
}

// SetVehicleMapping assigns vehicles to search roles.
func (m *SearchMission) SetVehicleMapping(mapping map[string]string) error {
	if m.Status() == mission.StatusRunning || m.Status() == mission.StatusComplete {
		return fmt.Errorf("search: vehicle mapping locked in %s", m.Status())
	}
	if len(mapping) == 0 {
		return fmt.Errorf("search: mapping requires at least one vehicle")
	}
	m.mapping = mapping
	m.checkSetup()
	return nil
}

// SetupComplete reports whether the mission can be scheduled.
func (m *SearchMission) SetupComplete() bool {
	return m.settings != nil && len(m.mapping) > 0
}

// Start begins the sweep with the previous mission's result payload.
func (m *SearchMission) Start(required mission.Data) error {
	m.required = required
	return m.MarkRunning()
}

// Update folds a POI or COMPLETE report into the mission result.
func (m *SearchMission) Update(msg *model.Message) {
	switch msg.Type {
	case model.MessagePOI:
		m.pois = append(m.pois, map[string]float64{"lat": *msg.Lat, "lon": *msg.Lon})
		m.log.Infof("search: poi %d reported by %s", len(m.pois), msg.VehicleID)
	case model.MessageComplete:
		if m.completed[msg.VehicleID] {
			return
		}
		m.completed[msg.VehicleID] = true
		for k, v := range msg.MissionData {
			m.collected[k] = v
		}
		if len(m.completed) == len(m.mapping) {
			if err := m.MarkComplete(); err != nil {
				m.log.Errorf("search: %v", err)
			}
		}
	}
}

// ActiveVehicles returns the mapped vehicle ids.
func (m *SearchMission) ActiveVehicles() map[string]struct{} {
	set := make(map[string]struct{}, len(m.mapping))
	for id := range m.mapping {
		set[id] = struct{}{}
	}
	return set
}

// Result yields the payload handed to the next mission.
func (m *SearchMission) Result() mission.Data {
	res := mission.Data{"pois": m.pois}
	for k, v := range m.collected {
		res[k] = v
	}
	return res
}

func (m *SearchMission) checkSetup() {
	if !m.SetupComplete() {
		return
	}
	if err := m.MarkReady(); err != nil {
		m.log.Debugf("search: %v", err)
	}
}
