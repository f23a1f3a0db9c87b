package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/groundlink/core/metrics"
	"github.com/kilianp07/groundlink/core/router"
	"github.com/kilianp07/groundlink/infra/mqtt"
)

// Config is the root service configuration.
type Config struct {
	MQTT    mqtt.Config    `json:"mqtt"`
	Router  router.Config  `json:"router"`
	Fleet   FleetConfig    `json:"fleet"`
	Metrics metrics.Config `json:"metrics"`
	API     APIConfig      `json:"api"`
	// Missions is an optional batch scheduled at startup.
	Missions []MissionSpec `json:"missions"`
}

// Load reads the configuration file and applies environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("GL_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "gl_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.MQTT.SetDefaults()
	cfg.Router.SetDefaults()
	cfg.Fleet.SetDefaults()
	cfg.API.SetDefaults()
	if err := cfg.Fleet.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
