package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
)

// ExecResult is the outcome of running a command inside a container.
type ExecResult struct {
	ExitCode int
	Output   string
}

// Container is the capability this package needs from a running container.
// The docker-backed implementation is DockerContainer; tests substitute
// scripted fakes.
type Container interface {
	// Exec runs argv inside the container and returns its exit code and
	// combined output.
	Exec(ctx context.Context, argv []string) (ExecResult, error)

	// PutArchive extracts a tar archive into destDir inside the container.
	PutArchive(ctx context.Context, destDir string, archive []byte) error

	// Host returns the address the container's mapped ports are reachable
	// on from the host.
	Host(ctx context.Context) (string, error)

	// MappedPort returns the host port an exposed container port maps to.
	MappedPort(ctx context.Context, port nat.Port) (nat.Port, error)
}

// DockerContainer adapts a started testcontainers container to the
// Container capability. Archive uploads go through the Docker API
// directly: put_archive semantics avoid the quoting failures of shell
// heredocs with arbitrary file content.
type DockerContainer struct {
	inner testcontainers.Container
	cli   client.APIClient
}

// NewDockerContainer wraps a started container, creating a Docker API
// client for archive transfers.
func NewDockerContainer(ctx context.Context, inner testcontainers.Container) (*DockerContainer, error) {
	cli, err := testcontainers.NewDockerClientWithOpts(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return &DockerContainer{inner: inner, cli: cli}, nil
}

// Unwrap returns the underlying testcontainers container.
func (c *DockerContainer) Unwrap() testcontainers.Container { return c.inner }

// Exec implements Container.
func (c *DockerContainer) Exec(ctx context.Context, argv []string) (ExecResult, error) {
	code, reader, err := c.inner.Exec(ctx, argv, tcexec.Multiplexed())
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec %v: %w", argv, err)
	}
	out, err := io.ReadAll(reader)
	if err != nil {
		return ExecResult{}, fmt.Errorf("reading exec output: %w", err)
	}
	return ExecResult{ExitCode: code, Output: string(out)}, nil
}

// PutArchive implements Container.
func (c *DockerContainer) PutArchive(ctx context.Context, destDir string, archive []byte) error {
	err := c.cli.CopyToContainer(ctx, c.inner.GetContainerID(), destDir,
		bytes.NewReader(archive), container.CopyToContainerOptions{})
	if err != nil {
		return fmt.Errorf("copying archive to %s: %w", destDir, err)
	}
	return nil
}

// Host implements Container.
func (c *DockerContainer) Host(ctx context.Context) (string, error) {
	return c.inner.Host(ctx)
}

// MappedPort implements Container.
func (c *DockerContainer) MappedPort(ctx context.Context, port nat.Port) (nat.Port, error) {
	return c.inner.MappedPort(ctx, port)
}
