package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load builds the configuration: defaults, then the YAML file at path (if
// non-empty), then INDOCKER_ environment overrides, then validation.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("INDOCKER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid INDOCKER_PORT: %w", err)
		}
		cfg.Sandbox.Port = port
	}
	if v := os.Getenv("INDOCKER_PYTHON_VERSION"); v != "" {
		cfg.Sandbox.PythonVersion = v
	}
	if v := os.Getenv("INDOCKER_PACKAGES"); v != "" {
		cfg.Sandbox.Packages = splitList(v)
	}
	if v := os.Getenv("INDOCKER_VENV_DIR"); v != "" {
		cfg.Sandbox.VenvDir = v
	}
	if v := os.Getenv("INDOCKER_CONNECT_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid INDOCKER_CONNECT_RETRIES: %w", err)
		}
		cfg.Sandbox.ConnectRetries = n
	}
	if v := os.Getenv("INDOCKER_SYNC_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid INDOCKER_SYNC_TIMEOUT: %w", err)
		}
		cfg.Sandbox.SyncTimeout = d
	}
	if v := os.Getenv("INDOCKER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("INDOCKER_DEBUG"); v != "" {
		cfg.Log.Debug = v
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
