package sandbox

import "time"

// Defaults for container preparation. ServerPort is the fixed well-known
// port the execution server listens on inside the container.
const (
	ServerPort            = 51337
	DefaultPythonVersion  = "3.12"
	DefaultVenvDir        = "/opt/pytest-in-docker"
	DefaultConnectRetries = 10
	DefaultConnectDelay   = 500 * time.Millisecond
	DefaultSyncTimeout    = 30 * time.Second
)

// DefaultPackages are installed during provisioning: the by-value
// deserializer and the assertion library remote test bodies may use.
var DefaultPackages = []string{"cbor2", "pytest"}

// Config threads preparation settings through Bootstrap explicitly; there
// is no process-wide state.
type Config struct {
	// Port the execution server listens on inside the container.
	Port int

	// PythonVersion is the host-side major.minor target the container's
	// interpreter must match.
	PythonVersion string

	// Packages installed into the container during provisioning.
	Packages []string

	// VenvDir is where the isolated environment is created.
	VenvDir string

	// ConnectRetries bounds the connection attempts; ConnectDelay is the
	// fixed pause between them.
	ConnectRetries int
	ConnectDelay   time.Duration

	// SyncTimeout bounds each synchronous remote call on the resulting
	// connection.
	SyncTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = ServerPort
	}
	if c.PythonVersion == "" {
		c.PythonVersion = DefaultPythonVersion
	}
	if len(c.Packages) == 0 {
		c.Packages = DefaultPackages
	}
	if c.VenvDir == "" {
		c.VenvDir = DefaultVenvDir
	}
	if c.ConnectRetries == 0 {
		c.ConnectRetries = DefaultConnectRetries
	}
	if c.ConnectDelay == 0 {
		c.ConnectDelay = DefaultConnectDelay
	}
	if c.SyncTimeout == 0 {
		c.SyncTimeout = DefaultSyncTimeout
	}
	return c
}
