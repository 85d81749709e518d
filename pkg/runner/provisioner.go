package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/testcontainers/testcontainers-go"

	"github.com/mesa-dot-dev/pytest-in-docker/pkg/sandbox"
)

// Provisioner acquires containers for the two spec variants the runner
// provisions itself; the factory variant bypasses it. The returned
// release function owns full teardown, including build artifacts for the
// build path.
type Provisioner interface {
	FromImage(ctx context.Context, image string, port int) (sandbox.Container, func(context.Context) error, error)
	FromBuild(ctx context.Context, path, tag string, port int) (sandbox.Container, func(context.Context) error, error)
}

// dockerProvisioner is the default, docker-daemon-backed Provisioner.
type dockerProvisioner struct{}

func (dockerProvisioner) FromImage(ctx context.Context, image string, port int) (sandbox.Container, func(context.Context) error, error) {
	return start(ctx, testcontainers.ContainerRequest{
		Image:        image,
		Cmd:          []string{"sleep", "infinity"},
		ExposedPorts: []string{fmt.Sprintf("%d/tcp", port)},
	})
}

func (dockerProvisioner) FromBuild(ctx context.Context, path, tag string, port int) (sandbox.Container, func(context.Context) error, error) {
	repo, tagPart := splitTag(tag)
	return start(ctx, testcontainers.ContainerRequest{
		FromDockerfile: testcontainers.FromDockerfile{
			Context: path,
			Repo:    repo,
			Tag:     tagPart,
			// The built image is a run-scoped artifact; it goes away with
			// the container.
			KeepImage: false,
		},
		Cmd:          []string{"sleep", "infinity"},
		ExposedPorts: []string{fmt.Sprintf("%d/tcp", port)},
	})
}

func start(ctx context.Context, req testcontainers.ContainerRequest) (sandbox.Container, func(context.Context) error, error) {
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("starting container: %w", err)
	}
	release := func(ctx context.Context) error {
		return ctr.Terminate(ctx)
	}

	dc, err := sandbox.NewDockerContainer(ctx, ctr)
	if err != nil {
		return nil, nil, errors.Join(err, release(ctx))
	}
	return dc, release, nil
}

func splitTag(tag string) (repo, tagPart string) {
	if repo, tagPart, found := strings.Cut(tag, ":"); found {
		return repo, tagPart
	}
	return tag, "latest"
}
