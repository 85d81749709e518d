package sandbox

import (
	"errors"
	"fmt"
)

// Stage identifies the bootstrap stage a PrepareError originated from.
type Stage string

const (
	StageLocateInterpreter Stage = "locate-interpreter"
	StageVersionCheck      Stage = "version-check"
	StageInstallDeps       Stage = "install-deps"
	StageInjectServer      Stage = "inject-server"
	StageConnect           Stage = "connect"
	StageHandshake         Stage = "handshake"
	StageCall              Stage = "call"
)

// ErrVersionMismatch marks a container whose Python major.minor differs
// from the host target. Matching versions are required for wire-format
// compatibility.
var ErrVersionMismatch = errors.New("python version mismatch")

// PrepareError reports a failed container preparation stage. Preparation
// failures are fatal: a failed stage is never retried by re-running
// earlier stages.
type PrepareError struct {
	Stage   Stage
	Message string
	Err     error
}

// Error implements the error interface.
func (e *PrepareError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("container prepare failed (%s): %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("container prepare failed (%s): %s", e.Stage, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *PrepareError) Unwrap() error { return e.Err }

func prepareErrorf(stage Stage, err error, format string, args ...any) *PrepareError {
	return &PrepareError{Stage: stage, Message: fmt.Sprintf(format, args...), Err: err}
}
