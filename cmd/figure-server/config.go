package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// serverConfig is the optional YAML configuration file. Flags and
// environment variables take precedence over file values.
type serverConfig struct {
	Listen   string `yaml:"listen"`
	Database struct {
		Type string `yaml:"type"`
		DSN  string `yaml:"dsn"`
	} `yaml:"database"`
}

func defaultConfig() *serverConfig {
	cfg := &serverConfig{Listen: ":8080"}
	return cfg
}

func loadConfig(path string) (*serverConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// applyOverrides lets command line flags win over file values.
func (c *serverConfig) applyOverrides(listen, dbType, dbDSN string) {
	if listen != "" && listen != ":8080" {
		c.Listen = listen
	}
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if dbType != "" {
		c.Database.Type = dbType
	}
	if dbDSN != "" {
		c.Database.DSN = dbDSN
	}
}
