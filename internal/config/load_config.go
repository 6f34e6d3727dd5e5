package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"devstrap/internal/logger"
)

// defaultConfig is the built-in configuration compiled into the binary, so a
// fresh machine can bootstrap without any files in place.
//
//go:embed config.default.yaml
var defaultConfig []byte

// Load resolves the effective configuration. Precedence, lowest to highest:
// built-in defaults, a config file (the path argument, or DEVSTRAP_CONFIG when
// the argument is empty), then DEVSTRAP_* environment variables. A devstrap/env
// file under the user config dir is sourced first so overrides can live next
// to the rest of the user's dotfiles.
func Load(path string) (*Config, error) {
	loadEnvFile()

	raw := defaultConfig
	if path == "" {
		path = os.Getenv("DEVSTRAP_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		raw = data
		logger.Debug("[DEBUG] Loaded configuration from %s\n", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// loadEnvFile sources ~/.config/devstrap/env (or the platform equivalent)
// into the process environment. Variables already set in the real environment
// win; a missing file is not an error.
func loadEnvFile() {
	dir, err := os.UserConfigDir()
	if err != nil {
		return
	}
	envPath := filepath.Join(dir, "devstrap", "env")
	if err := godotenv.Load(envPath); err == nil {
		logger.Debug("[DEBUG] Sourced environment overrides from %s\n", envPath)
	}
}

// applyEnvOverrides folds DEVSTRAP_* variables over the parsed config.
// Only scalar knobs are overridable; the package tiers come from YAML.
func applyEnvOverrides(cfg *Config) {
	for _, o := range []struct {
		key string
		dst *string
	}{
		{"DEVSTRAP_SHELL", &cfg.Shell.Default},
		{"DEVSTRAP_AUR_HELPER", &cfg.Packages.AurHelper},
		{"DEVSTRAP_FONT_FAMILY", &cfg.Fonts.Family},
	} {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.dst = v
			logger.Debug("[DEBUG] %s overrides config value\n", o.key)
		}
	}
}
