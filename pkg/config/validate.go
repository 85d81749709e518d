package config

import (
	"fmt"
	"regexp"
)

var versionRe = regexp.MustCompile(`^\d+\.\d+$`)

// Validate checks the configuration for values the runner cannot work
// with.
func (c Config) Validate() error {
	if c.Sandbox.Port < 1 || c.Sandbox.Port > 65535 {
		return fmt.Errorf("sandbox.port must be in 1..65535, got %d", c.Sandbox.Port)
	}
	if !versionRe.MatchString(c.Sandbox.PythonVersion) {
		return fmt.Errorf("sandbox.python_version must be major.minor, got %q", c.Sandbox.PythonVersion)
	}
	if c.Sandbox.ConnectRetries < 1 {
		return fmt.Errorf("sandbox.connect_retries must be positive, got %d", c.Sandbox.ConnectRetries)
	}
	if c.Sandbox.ConnectDelay <= 0 {
		return fmt.Errorf("sandbox.connect_delay must be positive, got %s", c.Sandbox.ConnectDelay)
	}
	if c.Sandbox.SyncTimeout <= 0 {
		return fmt.Errorf("sandbox.sync_timeout must be positive, got %s", c.Sandbox.SyncTimeout)
	}
	if len(c.Sandbox.Packages) == 0 {
		return fmt.Errorf("sandbox.packages must not be empty")
	}
	return nil
}
