// Package config provides unified configuration for the in-docker test
// runner.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (if specified)
//  3. Environment variable overrides (INDOCKER_ prefix)
//  4. Validation
package config

import (
	"time"

	"github.com/mesa-dot-dev/pytest-in-docker/pkg/sandbox"
)

// Config holds all configuration for the runner.
type Config struct {
	Sandbox SandboxConfig `yaml:"sandbox"`
	Log     LogConfig     `yaml:"log"`
}

// SandboxConfig holds container preparation settings.
type SandboxConfig struct {
	Port           int           `yaml:"port"`            // default: 51337
	PythonVersion  string        `yaml:"python_version"`  // default: "3.12"
	Packages       []string      `yaml:"packages"`        // default: cbor2, pytest
	VenvDir        string        `yaml:"venv_dir"`        // default: /opt/pytest-in-docker
	ConnectRetries int           `yaml:"connect_retries"` // default: 10
	ConnectDelay   time.Duration `yaml:"connect_delay"`   // default: 500ms
	SyncTimeout    time.Duration `yaml:"sync_timeout"`    // default: 30s
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // default: "INFO"
	Debug string `yaml:"debug"` // comma-separated debug categories
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Sandbox: SandboxConfig{
			Port:           sandbox.ServerPort,
			PythonVersion:  sandbox.DefaultPythonVersion,
			Packages:       sandbox.DefaultPackages,
			VenvDir:        sandbox.DefaultVenvDir,
			ConnectRetries: sandbox.DefaultConnectRetries,
			ConnectDelay:   sandbox.DefaultConnectDelay,
			SyncTimeout:    sandbox.DefaultSyncTimeout,
		},
		Log: LogConfig{Level: "INFO"},
	}
}

// SandboxConfig converts the loaded settings to the bootstrapper's config
// type.
func (c Config) SandboxSettings() sandbox.Config {
	return sandbox.Config{
		Port:           c.Sandbox.Port,
		PythonVersion:  c.Sandbox.PythonVersion,
		Packages:       c.Sandbox.Packages,
		VenvDir:        c.Sandbox.VenvDir,
		ConnectRetries: c.Sandbox.ConnectRetries,
		ConnectDelay:   c.Sandbox.ConnectDelay,
		SyncTimeout:    c.Sandbox.SyncTimeout,
	}
}
