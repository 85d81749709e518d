package integration

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"

	"github.com/mesa-dot-dev/pytest-in-docker/pkg/invoke"
	"github.com/mesa-dot-dev/pytest-in-docker/pkg/runner"
	"github.com/mesa-dot-dev/pytest-in-docker/pkg/sandbox"
	"github.com/mesa-dot-dev/pytest-in-docker/pkg/spec"
)

const alpineImage = "python:3.12-alpine"

func TestByReference_Alpine(t *testing.T) {
	requireRuntime(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	got, err := runner.Run(ctx, spec.Image(alpineImage), loadFunc(t, "test_sum"), nil, nil,
		fastBootstrap(), runner.WithStrategy(runner.StrategyByReference))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got != float64(4) {
		t.Errorf("result = %v (%T), want 4", got, got)
	}
}

func TestByValue_CarriesModuleConstant(t *testing.T) {
	requireRuntime(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	got, err := runner.Run(ctx, spec.Image(alpineImage), loadFunc(t, "test_greeting"), nil, nil,
		fastBootstrap())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got != "hello from the host" {
		t.Errorf("result = %v, want the host-side constant", got)
	}
}

func TestByValue_TransitiveHelper(t *testing.T) {
	requireRuntime(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	got, err := runner.Run(ctx, spec.Image(alpineImage), loadFunc(t, "test_triple"), nil, nil,
		fastBootstrap())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got != float64(21) {
		t.Errorf("result = %v (%T), want 21", got, got)
	}
}

func TestByValue_ModuleLevelClasses(t *testing.T) {
	requireRuntime(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	got, err := runner.Run(ctx, spec.Image(alpineImage), loadFunc(t, "test_greeter_class"), nil, nil,
		fastBootstrap())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got != "HELLO, WORLD" {
		t.Errorf("result = %v, want the subclass override's output", got)
	}
}

func TestRemoteAssertionFailure(t *testing.T) {
	requireRuntime(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	_, err := runner.Run(ctx, spec.Image(alpineImage), loadFunc(t, "test_boom"), nil, nil,
		fastBootstrap())
	var remote *invoke.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if !remote.Assertion {
		t.Errorf("AssertionError should be flagged as an assertion: %+v", remote)
	}
	if !strings.Contains(remote.Message, "boom") {
		t.Errorf("message = %q, want the assertion message", remote.Message)
	}
}

func TestRemoteException(t *testing.T) {
	requireRuntime(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	_, err := runner.Run(ctx, spec.Image(alpineImage), loadFunc(t, "test_raise"), nil, nil,
		fastBootstrap())
	var remote *invoke.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.Assertion {
		t.Errorf("ValueError must not be flagged as an assertion: %+v", remote)
	}
	if remote.Type != "ValueError" {
		t.Errorf("type = %q, want ValueError", remote.Type)
	}
}

// TestDebianImage exercises the PEP 668 path: debian-based python images
// carry an externally-managed environment marker, so dependencies land
// in a venv (or fall back to --break-system-packages).
func TestDebianImage(t *testing.T) {
	requireRuntime(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	got, err := runner.Run(ctx, spec.Image("python:3.12-slim"), loadFunc(t, "test_sum"), nil, nil,
		fastBootstrap())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got != float64(4) {
		t.Errorf("result = %v, want 4", got)
	}
}

// TestFactorySpec runs against a caller-owned container and verifies the
// runner leaves teardown to the factory's release function.
func TestFactorySpec(t *testing.T) {
	requireRuntime(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var released bool
	factory := func(ctx context.Context) (sandbox.Container, func(context.Context) error, error) {
		ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        alpineImage,
				Cmd:          []string{"sleep", "infinity"},
				ExposedPorts: []string{"51337/tcp"},
				Env:          map[string]string{"INDOCKER_FACTORY": "yes"},
			},
			Started: true,
		})
		if err != nil {
			return nil, nil, err
		}
		release := func(ctx context.Context) error {
			released = true
			return ctr.Terminate(ctx)
		}
		dc, err := sandbox.NewDockerContainer(ctx, ctr)
		if err != nil {
			release(ctx)
			return nil, nil, err
		}
		return dc, release, nil
	}

	got, err := runner.Run(ctx, spec.Factory(factory), loadFunc(t, "test_factory_env"), nil, nil,
		fastBootstrap())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got != "yes" {
		t.Errorf("result = %v, want the factory container's env value", got)
	}
	if !released {
		t.Error("factory release was not called")
	}
}
