package config

// MissionSpec describes one mission to schedule at startup.
type MissionSpec struct {
	// Type names a registered mission variant.
	Type string `json:"type"`
	// Settings is passed verbatim to SetMissionInfo.
	Settings map[string]any `json:"settings"`
	// Mapping assigns vehicle ids to mission roles.
	Mapping map[string]string `json:"mapping"`
}
