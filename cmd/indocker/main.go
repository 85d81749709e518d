// Command indocker runs a single Python test function from a file inside
// an ephemeral Docker container.
//
// Usage:
//
//	indocker -file tests/test_math.py -func test_add -image python:3.12-alpine
//	indocker -file tests/test_math.py -func test_add -path ./image -tag demo:latest
//
// Settings come from -config (YAML) with INDOCKER_ environment overrides:
//
//	INDOCKER_PORT            - execution server port (default: 51337)
//	INDOCKER_PYTHON_VERSION  - interpreter major.minor target (default: 3.12)
//	INDOCKER_SYNC_TIMEOUT    - per-call timeout (default: 30s)
//	INDOCKER_LOG_LEVEL       - ERROR, WARN, INFO, DEBUG, TRACE
//	INDOCKER_DEBUG           - debug categories (sandbox, closure, invoke, ...)
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesa-dot-dev/pytest-in-docker/pkg/closure"
	"github.com/mesa-dot-dev/pytest-in-docker/pkg/config"
	"github.com/mesa-dot-dev/pytest-in-docker/pkg/debug"
	"github.com/mesa-dot-dev/pytest-in-docker/pkg/runner"
	"github.com/mesa-dot-dev/pytest-in-docker/pkg/spec"
)

func main() {
	if err := run(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		file       = flag.String("file", "", "Python file containing the test function (required)")
		funcName   = flag.String("func", "", "name of the function to run (required)")
		image      = flag.String("image", "", "container image to run in")
		path       = flag.String("path", "", "Dockerfile build context")
		tag        = flag.String("tag", "", "tag for the built image")
		configPath = flag.String("config", "", "YAML config file")
		strategy   = flag.String("strategy", "value", `transport strategy: "value" or "reference"`)
	)
	flag.Parse()

	if *file == "" || *funcName == "" {
		return fmt.Errorf("-file and -func are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	debug.Init(cfg.Log.Debug, cfg.Log.Level)

	cs, err := spec.Resolve(nil, spec.Keywords{Image: *image, Path: *path, Tag: *tag})
	if err != nil {
		return err
	}

	source, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *file, err)
	}
	moduleName := strings.TrimSuffix(filepath.Base(*file), ".py")
	mod := closure.ParseModule(moduleName, string(source))
	fn, ok := mod.Func(*funcName)
	if !ok {
		return fmt.Errorf("function %q not found in %s", *funcName, *file)
	}

	opts := []runner.Option{runner.WithSandboxConfig(cfg.SandboxSettings())}
	switch *strategy {
	case "value":
		opts = append(opts, runner.WithStrategy(runner.StrategyByValue))
	case "reference":
		opts = append(opts, runner.WithStrategy(runner.StrategyByReference))
	default:
		return fmt.Errorf("unknown strategy %q", *strategy)
	}

	slog.Info("running in container", "func", *funcName, "file", *file)
	result, err := runner.Run(context.Background(), cs, fn, nil, nil, opts...)
	if err != nil {
		return err
	}

	out, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
