package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/docker/go-connections/nat"

	"github.com/mesa-dot-dev/pytest-in-docker/pkg/debug"
	"github.com/mesa-dot-dev/pytest-in-docker/pkg/observability"
)

// interpreterCandidates is the fixed probe order for locating a Python
// interpreter inside the container.
var interpreterCandidates = []string{"python3", "python"}

// Bootstrap provisions the container's execution environment and returns
// a verified connection to it. Stages run strictly in order and the first
// failure is terminal; see the package documentation.
func Bootstrap(ctx context.Context, c Container, cfg Config) (*Conn, error) {
	cfg = cfg.withDefaults()
	start := time.Now()

	conn, err := bootstrap(ctx, c, cfg)
	if err != nil {
		var perr *PrepareError
		if errors.As(err, &perr) {
			observability.BootstrapFailures.WithLabelValues(string(perr.Stage)).Inc()
		}
		return nil, err
	}
	observability.BootstrapDuration.Observe(time.Since(start).Seconds())
	return conn, nil
}

func bootstrap(ctx context.Context, c Container, cfg Config) (*Conn, error) {
	python, err := findInterpreter(ctx, c)
	if err != nil {
		return nil, err
	}
	debug.Log("sandbox", "interpreter located", "path", python)

	if err := checkPythonVersion(ctx, c, python, cfg.PythonVersion); err != nil {
		return nil, err
	}

	python, err = installDeps(ctx, c, python, cfg)
	if err != nil {
		return nil, err
	}

	if err := launchServer(ctx, c, python, cfg); err != nil {
		return nil, err
	}

	return connectWithRetries(ctx, c, cfg)
}

func findInterpreter(ctx context.Context, c Container) (string, error) {
	for _, name := range interpreterCandidates {
		res, err := c.Exec(ctx, []string{"which", name})
		if err != nil {
			return "", prepareErrorf(StageLocateInterpreter, err, "probing for %q", name)
		}
		if res.ExitCode == 0 {
			return strings.TrimSpace(res.Output), nil
		}
	}
	return "", prepareErrorf(StageLocateInterpreter, nil,
		"none of [%s] found in the container", strings.Join(interpreterCandidates, ", "))
}

// checkPythonVersion compares the container interpreter's major.minor
// against the configured host target. The wire format is only guaranteed
// compatible within the same minor version.
func checkPythonVersion(ctx context.Context, c Container, python, want string) error {
	const versionScript = "import sys; print(f'{sys.version_info.major}.{sys.version_info.minor}')"
	res, err := c.Exec(ctx, []string{python, "-c", versionScript})
	if err != nil {
		return prepareErrorf(StageVersionCheck, err, "querying python version")
	}
	if res.ExitCode != 0 {
		return prepareErrorf(StageVersionCheck, nil,
			"failed to determine python version in the container: %s", res.Output)
	}
	got := strings.TrimSpace(res.Output)
	if got != want {
		return prepareErrorf(StageVersionCheck, ErrVersionMismatch,
			"host targets %s but container has %s; matching major.minor versions are required", want, got)
	}
	return nil
}

// installDeps installs the execution-server dependencies, returning the
// interpreter path to use from here on. A venv is attempted first (PEP
// 668); minimal images with venv or ensurepip stripped fall back to a
// system-wide install with --break-system-packages.
func installDeps(ctx context.Context, c Container, python string, cfg Config) (string, error) {
	venvRes, err := c.Exec(ctx, []string{python, "-m", "venv", cfg.VenvDir})
	if err != nil {
		return "", prepareErrorf(StageInstallDeps, err, "creating venv")
	}
	venvOK := venvRes.ExitCode == 0
	if venvOK {
		python = cfg.VenvDir + "/bin/python"
	}
	debug.Log("sandbox", "installing packages", "venv", venvOK, "packages", cfg.Packages)

	installCmd := []string{python, "-m", "pip", "install"}
	if !venvOK {
		installCmd = append(installCmd, "--break-system-packages")
	}
	installCmd = append(installCmd, cfg.Packages...)

	res, err := c.Exec(ctx, installCmd)
	if err != nil {
		return "", prepareErrorf(StageInstallDeps, err, "installing container deps")
	}
	if res.ExitCode != 0 {
		return "", prepareErrorf(StageInstallDeps, nil,
			"failed to install container deps: %s", res.Output)
	}
	return python, nil
}

func launchServer(ctx context.Context, c Container, python string, cfg Config) error {
	if err := CopyFileToContainer(ctx, c, ServerScript(cfg.Port), ScriptPath); err != nil {
		return prepareErrorf(StageInjectServer, err, "transferring server script")
	}
	res, err := c.Exec(ctx, []string{"sh", "-c",
		fmt.Sprintf("%s %s >/tmp/indocker_server.log 2>&1 &", python, ScriptPath)})
	if err != nil {
		return prepareErrorf(StageInjectServer, err, "starting execution server")
	}
	if res.ExitCode != 0 {
		return prepareErrorf(StageInjectServer, nil,
			"failed to start execution server: %s", res.Output)
	}
	return nil
}

// Connect dials the container's mapped execution-server port and
// verifies liveness, without provisioning anything. It is the final
// bootstrap stage, exposed for containers that already run a server.
func Connect(ctx context.Context, c Container, cfg Config) (*Conn, error) {
	return connectWithRetries(ctx, c, cfg.withDefaults())
}

// connectWithRetries dials the mapped server port until it answers, then
// verifies liveness with an echo round trip. Only transient transport
// errors (refused, reset, end of stream) are retried; anything else is
// fatal immediately.
func connectWithRetries(ctx context.Context, c Container, cfg Config) (*Conn, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return nil, prepareErrorf(StageConnect, err, "resolving container host")
	}
	containerPort, err := nat.NewPort("tcp", fmt.Sprintf("%d", cfg.Port))
	if err != nil {
		return nil, prepareErrorf(StageConnect, err, "building port")
	}
	mapped, err := c.MappedPort(ctx, containerPort)
	if err != nil {
		return nil, prepareErrorf(StageConnect, err, "resolving mapped port")
	}

	attempts := 0
	op := func() (*Conn, error) {
		attempts++
		conn := newConn(host, mapped.Port(), cfg.SyncTimeout)
		echoed, err := conn.Echo(ctx, "hello")
		if err != nil {
			if isTransient(err) {
				debug.Log("sandbox", "connect attempt failed", "attempt", attempts, "error", err)
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		if echoed != "hello" {
			return nil, backoff.Permanent(prepareErrorf(StageHandshake, nil,
				"failed to communicate with execution server: echoed %q", echoed))
		}
		return conn, nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.ConnectDelay), uint64(cfg.ConnectRetries-1)),
		ctx)
	conn, err := backoff.RetryWithData(op, policy)
	if err != nil {
		var perr *PrepareError
		if errors.As(err, &perr) {
			return nil, perr
		}
		return nil, prepareErrorf(StageConnect, err,
			"could not connect to execution server after %d attempts", attempts)
	}
	debug.Log("sandbox", "connection verified", "host", host, "port", mapped.Port(), "attempts", attempts)
	return conn, nil
}

// isTransient reports whether a connect-phase error is worth retrying.
func isTransient(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
