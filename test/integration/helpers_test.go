// Package integration runs end-to-end tests against real containers:
// each test provisions a throwaway Python container, bootstraps the
// execution server inside it, and runs a test function remotely.
//
// Tests are skipped when no container runtime is available, or when
// SKIP_INTEGRATION=true.
package integration

import (
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/mesa-dot-dev/pytest-in-docker/pkg/closure"
	"github.com/mesa-dot-dev/pytest-in-docker/pkg/runner"
	"github.com/mesa-dot-dev/pytest-in-docker/pkg/sandbox"
)

func init() {
	// Configure testcontainers to use podman when docker is absent.
	// Detect the podman socket from `podman machine inspect`.
	if os.Getenv("DOCKER_HOST") == "" {
		if _, err := exec.LookPath("docker"); err != nil {
			out, perr := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
			if perr == nil {
				sock := strings.TrimSpace(string(out))
				if sock != "" {
					os.Setenv("DOCKER_HOST", "unix://"+sock)
				}
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// requireRuntime skips the test when no container runtime can be used.
func requireRuntime(t *testing.T) {
	t.Helper()
	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping container integration tests")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		if _, err := exec.LookPath("podman"); err != nil {
			t.Skip("no container runtime found, skipping integration tests")
		}
	}
}

// testModule is the host-side test file the scenarios pull functions
// out of. It mirrors how a test session would look in practice: module
// constants, a helper, and test functions referencing both.
const testModule = `
import os

GREETING = "hello from the host"
FACTOR = 3

def triple(x):
    return x * FACTOR

def test_sum():
    assert 2 + 2 == 4
    return 4

def test_greeting():
    return GREETING

def test_triple():
    return triple(7)

def test_boom():
    assert 1 == 2, "boom"

def test_raise():
    raise ValueError("not an assertion")

class Greeter:
    def __init__(self, name):
        self.name = name

    def greet(self):
        return "Hello, " + self.name

class LoudGreeter(Greeter):
    def greet(self):
        return super().greet().upper()

def test_greeter_class():
    return LoudGreeter("world").greet()

def test_factory_env():
    return os.environ.get("INDOCKER_FACTORY", "")
`

func loadFunc(t *testing.T, name string) *closure.Func {
	t.Helper()
	mod := closure.ParseModule("test_session", testModule)
	fn, ok := mod.Func(name)
	if !ok {
		t.Fatalf("function %q not found in test module", name)
	}
	return fn
}

// fastBootstrap keeps retry behavior snappy for CI while leaving room
// for slow image pulls elsewhere in the stack.
func fastBootstrap() runner.Option {
	return runner.WithSandboxConfig(sandbox.Config{
		ConnectRetries: 20,
		ConnectDelay:   500 * time.Millisecond,
		SyncTimeout:    60 * time.Second,
	})
}
