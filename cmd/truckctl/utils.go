package main

import (
	"fmt"
	"os"

	"github.com/jihwankim/haultruck/pkg/config"
)

// loadConfig loads the configuration from file, auto-generating it if needed.
func loadConfig() (*config.Config, error) {
	configPath := cfgFile
	if configPath == "" {
		configPath = "config.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Printf("config file not found, creating default configuration at: %s\n", configPath)

		cfg := config.Default()
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}

		return cfg, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config from %s: %w", configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
