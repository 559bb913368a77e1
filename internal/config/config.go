// Package config loads server configuration from YAML with defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the craft cost server.
type Config struct {
	// Network
	Port int `yaml:"port"`

	// Default market region queried when a request names none.
	Region string `yaml:"region"`

	// Game data
	DataPath string `yaml:"data_path"`

	// Database
	DBPath string `yaml:"db_path"`

	// Security
	AdminKey string `yaml:"admin_key"`

	// Market board API
	Market MarketConfig `yaml:"market"`
}

// MarketConfig holds market board client parameters.
type MarketConfig struct {
	BaseURL         string `yaml:"base_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Port:     8080,
		Region:   "europe",
		DataPath: "data/items.json",
		DBPath:   "craftcost.db",
		Market: MarketConfig{
			BaseURL:         "https://universalis.app",
			TimeoutSeconds:  15,
			CacheTTLSeconds: 300,
		},
	}
}

// Load reads config from a YAML file, layered over defaults.
// If the file doesn't exist, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnv(cfg), nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return applyEnv(cfg), nil
}

// applyEnv lets the admin key come from the environment so it can stay
// out of config files.
func applyEnv(cfg Config) Config {
	if key := os.Getenv("CRAFTCOST_ADMIN_KEY"); key != "" {
		cfg.AdminKey = key
	}
	return cfg
}
