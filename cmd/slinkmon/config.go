package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/modtalks/slink.go/pkg/dl"
)

// slinkmon config.toml key mapping.
type fileConfig struct {
	Broker     string `toml:"broker"`
	QueueDepth int    `toml:"queue_depth"`
	Echo       bool   `toml:"echo"`
}

type config struct {
	Broker     string
	QueueDepth int
	Echo       bool
}

func defaultConfig() config {
	return config{
		Broker:     "mqtt://127.0.0.1:1883/slink",
		QueueDepth: dl.DefaultQueueDepth,
	}
}

// loadConfig overlays a TOML file onto the defaults. Absent keys keep
// their default values.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load config: %w", err)
	}
	if meta.IsDefined("broker") {
		cfg.Broker = strings.TrimSpace(raw.Broker)
	}
	if meta.IsDefined("queue_depth") {
		cfg.QueueDepth = raw.QueueDepth
	}
	if meta.IsDefined("echo") {
		cfg.Echo = raw.Echo
	}
	if cfg.Broker == "" {
		return config{}, fmt.Errorf("broker must not be empty")
	}
	if cfg.QueueDepth < 0 {
		return config{}, fmt.Errorf("queue_depth must not be negative")
	}
	return cfg, nil
}
