package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mesa-dot-dev/pytest-in-docker/pkg/closure"
	"github.com/mesa-dot-dev/pytest-in-docker/pkg/invoke"
	"github.com/mesa-dot-dev/pytest-in-docker/pkg/observability"
	"github.com/mesa-dot-dev/pytest-in-docker/pkg/sandbox"
	"github.com/mesa-dot-dev/pytest-in-docker/pkg/spec"
)

// Strategy selects the wire form used to transport the test callable.
type Strategy int

const (
	// StrategyByValue rehomes the callable's namespace and ships it whole.
	// The general mechanism and the default.
	StrategyByValue Strategy = iota

	// StrategyByReference recompiles the callable from source and ships
	// only the source. Restricted to self-contained bodies.
	StrategyByReference
)

// Runner executes test closures inside containers described by one
// ContainerSpec. A Runner may serve many invocations; each invocation
// owns an independent container and connection.
type Runner struct {
	spec     spec.ContainerSpec
	cfg      sandbox.Config
	strategy Strategy
	prov     Provisioner
}

// Option customizes a Runner.
type Option func(*Runner)

// WithSandboxConfig replaces the whole sandbox preparation config.
func WithSandboxConfig(cfg sandbox.Config) Option {
	return func(r *Runner) { r.cfg = cfg }
}

// WithSyncTimeout overrides the per-call synchronous timeout, typically
// forwarded from the framework's timeout marker or ini setting.
func WithSyncTimeout(d time.Duration) Option {
	return func(r *Runner) { r.cfg.SyncTimeout = d }
}

// WithPythonVersion overrides the major.minor interpreter target.
func WithPythonVersion(v string) Option {
	return func(r *Runner) { r.cfg.PythonVersion = v }
}

// WithStrategy selects the transport strategy.
func WithStrategy(s Strategy) Option {
	return func(r *Runner) { r.strategy = s }
}

// WithProvisioner substitutes the container provisioner. Tests use this
// to run the orchestrator without a docker daemon.
func WithProvisioner(p Provisioner) Option {
	return func(r *Runner) { r.prov = p }
}

// New builds a Runner for the given container spec.
func New(cs spec.ContainerSpec, opts ...Option) *Runner {
	r := &Runner{
		spec: cs,
		prov: dockerProvisioner{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes fn remotely with the given arguments: acquire a container
// per the container spec, bootstrap it, sanitize and invoke the closure,
// and propagate its return value or failure. Container and connection are
// released on every exit path, connection first.
func (r *Runner) Run(ctx context.Context, fn *closure.Func, args []any, kwargs map[string]any) (result any, err error) {
	log := slog.With("run_id", uuid.NewString()[:8], "func", fn.Name)
	defer func() {
		observability.RunsTotal.WithLabelValues(runStatus(err)).Inc()
	}()

	c, release, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			log.Warn("container teardown failed", "error", rerr)
		}
	}()

	conn, err := sandbox.Bootstrap(ctx, c, r.cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	log.Debug("sandbox ready", "timeout", conn.Timeout())

	switch r.strategy {
	case StrategyByReference:
		return invoke.ByReference(ctx, conn, fn, args, kwargs)
	default:
		return invoke.ByValue(ctx, conn, fn, args, kwargs)
	}
}

func (r *Runner) acquire(ctx context.Context) (sandbox.Container, func(context.Context) error, error) {
	switch s := r.spec.(type) {
	case spec.ImageSpec:
		return r.prov.FromImage(ctx, s.Image, r.port())
	case spec.BuildSpec:
		return r.prov.FromBuild(ctx, s.Path, s.Tag, r.port())
	case spec.FactorySpec:
		return s.Factory(ctx)
	default:
		return nil, nil, &spec.InvalidContainerSpecError{Message: "unmatched spec variant"}
	}
}

func (r *Runner) port() int {
	if r.cfg.Port != 0 {
		return r.cfg.Port
	}
	return sandbox.ServerPort
}

func runStatus(err error) string {
	if err == nil {
		return "passed"
	}
	var remote *invoke.RemoteError
	if errors.As(err, &remote) {
		if remote.Assertion {
			return "failed"
		}
		return "raised"
	}
	return "error"
}

// Run is a convenience for one-shot invocations.
func Run(ctx context.Context, cs spec.ContainerSpec, fn *closure.Func, args []any, kwargs map[string]any, opts ...Option) (any, error) {
	return New(cs, opts...).Run(ctx, fn, args, kwargs)
}

// RunMarked resolves the marker surface (explicit arguments, falling back
// to an "image" funcarg) and invokes fn with the parametrized funcargs as
// keyword arguments, mirroring how the test framework calls marked tests.
func RunMarked(ctx context.Context, args []string, kw spec.Keywords, funcargs map[string]any, fn *closure.Func, opts ...Option) error {
	cs, err := spec.FromMarker(args, kw, funcargs)
	if err != nil {
		return err
	}
	_, err = New(cs, opts...).Run(ctx, fn, nil, funcargs)
	return err
}
