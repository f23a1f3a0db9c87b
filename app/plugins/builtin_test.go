package plugins

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/groundlink/core/mission"
	"github.com/kilianp07/groundlink/core/model"
	"github.com/kilianp07/groundlink/infra/logger"
)

func configuredSearch(t *testing.T, vehicles ...string) *SearchMission {
	t.Helper()
	m := NewSearchMission(logger.NopLogger{})
	require.NoError(t, m.SetMissionInfo(map[string]any{"area": "sector-7"}))
	mapping := make(map[string]string, len(vehicles))
	for _, v := range vehicles {
		mapping[v] = "sweeper"
	}
	require.NoError(t, m.SetVehicleMapping(mapping))
	return m
}

func TestRegisterBuiltins(t *testing.T) {
	reg := mission.NewTypeRegistry()
	RegisterBuiltins(reg, logger.NopLogger{})
	m, ok := reg.New("search")
	require.True(t, ok)
	require.Equal(t, mission.StatusSetup, m.Status())
}

func TestSearchSetupGating(t *testing.T) {
	m := NewSearchMission(logger.NopLogger{})
	require.False(t, m.SetupComplete())

	require.Error(t, m.SetMissionInfo(map[string]any{"speed": 3}), "area is mandatory")
	require.Error(t, m.SetVehicleMapping(nil), "empty mapping refused")
	require.False(t, m.SetupComplete())

	require.NoError(t, m.SetMissionInfo(map[string]any{"area": "sector-7"}))
	require.False(t, m.SetupComplete(), "mapping still missing")
	require.NoError(t, m.SetVehicleMapping(map[string]string{"V1": "sweeper"}))
	require.True(t, m.SetupComplete())
	require.Equal(t, mission.StatusReady, m.Status())
}

func TestSearchLocksConfigWhileRunning(t *testing.T) {
	m := configuredSearch(t, "V1")
	require.NoError(t, m.Start(nil))
	require.Error(t, m.SetMissionInfo(map[string]any{"area": "elsewhere"}))
	require.Error(t, m.SetVehicleMapping(map[string]string{"V2": "sweeper"}))
}

func TestSearchActiveVehicles(t *testing.T) {
	m := configuredSearch(t, "V1", "V2")
	set := m.ActiveVehicles()
	require.Len(t, set, 2)
	require.Contains(t, set, "V1")
	require.Contains(t, set, "V2")
}

func TestSearchCollectsPOIsAndCompletes(t *testing.T) {
	m := configuredSearch(t, "V1", "V2")
	require.NoError(t, m.Start(mission.Data{"origin": "base"}))

	lat, lon := 48.85, 2.35
	m.Update(&model.Message{Type: model.MessagePOI, VehicleID: "V1", Lat: &lat, Lon: &lon})
	m.Update(&model.Message{
		Type: model.MessageComplete, VehicleID: "V1",
		MissionData: map[string]any{"frames": 12},
	})
	require.Equal(t, mission.StatusRunning, m.Status(), "one vehicle still sweeping")

	m.Update(&model.Message{
		Type: model.MessageComplete, VehicleID: "V2",
		MissionData: map[string]any{"frames": 9},
	})
	require.Equal(t, mission.StatusComplete, m.Status())

	res := m.Result()
	pois, ok := res["pois"].([]map[string]float64)
	require.True(t, ok)
	require.Len(t, pois, 1)
	require.Equal(t, 48.85, pois[0]["lat"])
	require.Equal(t, 9, res["frames"], "last COMPLETE wins on key collision")
}

func TestSearchDuplicateCompleteIgnored(t *testing.T) {
	m := configuredSearch(t, "V1", "V2")
	require.NoError(t, m.Start(nil))
	m.Update(&model.Message{Type: model.MessageComplete, VehicleID: "V1", MissionData: map[string]any{}})
	m.Update(&model.Message{Type: model.MessageComplete, VehicleID: "V1", MissionData: map[string]any{}})
	require.Equal(t, mission.StatusRunning, m.Status())
}
