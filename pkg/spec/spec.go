package spec

import (
	"context"

	"github.com/mesa-dot-dev/pytest-in-docker/pkg/sandbox"
)

// ContainerFactory provisions an already-started container. The returned
// release function owns teardown and is invoked on every exit path of the
// run that consumed the container.
type ContainerFactory func(ctx context.Context) (sandbox.Container, func(context.Context) error, error)

// ContainerSpec is the closed set of ways a caller can describe the
// container a test should run in. Exactly one variant is ever produced.
type ContainerSpec interface {
	isContainerSpec()
}

// ImageSpec references a pre-built, pullable image.
type ImageSpec struct {
	Image string
}

func (ImageSpec) isContainerSpec() {}

// BuildSpec references a Dockerfile build context and the tag to build.
type BuildSpec struct {
	Path string
	Tag  string
}

func (BuildSpec) isContainerSpec() {}

// FactorySpec delegates provisioning to caller-supplied logic.
type FactorySpec struct {
	Factory ContainerFactory
}

func (FactorySpec) isContainerSpec() {}

// Keywords carries the keyword arguments of the decorator and marker
// surfaces. Zero values mean "not supplied".
type Keywords struct {
	Image   string
	Path    string
	Tag     string
	Factory ContainerFactory
}

// Image is a convenience constructor for the common single-image case.
func Image(image string) ContainerSpec { return ImageSpec{Image: image} }

// Build is a convenience constructor for the path+tag case.
func Build(path, tag string) ContainerSpec { return BuildSpec{Path: path, Tag: tag} }

// Factory is a convenience constructor for caller-provisioned containers.
func Factory(f ContainerFactory) ContainerSpec { return FactorySpec{Factory: f} }

// Resolve parses positional arguments and keywords into a ContainerSpec.
//
// Accepted shapes mirror the decorator surface: (image), (path, tag),
// image=, path= + tag=, (path) + tag=, factory=. When several shapes are
// supplied simultaneously the precedence is factory, then explicit image,
// then path+tag. Anything else fails with InvalidContainerSpecError.
func Resolve(args []string, kw Keywords) (ContainerSpec, error) {
	if kw.Factory != nil {
		return FactorySpec{Factory: kw.Factory}, nil
	}

	switch {
	case len(args) == 1 && kw.Image == "" && kw.Path == "" && kw.Tag == "":
		return ImageSpec{Image: args[0]}, nil
	case len(args) == 0 && kw.Image != "":
		return ImageSpec{Image: kw.Image}, nil
	case len(args) == 2 && kw.Image == "" && kw.Path == "" && kw.Tag == "":
		return BuildSpec{Path: args[0], Tag: args[1]}, nil
	case len(args) == 0 && kw.Path != "" && kw.Tag != "":
		return BuildSpec{Path: kw.Path, Tag: kw.Tag}, nil
	case len(args) == 1 && kw.Tag != "" && kw.Image == "" && kw.Path == "":
		return BuildSpec{Path: args[0], Tag: kw.Tag}, nil
	}

	return nil, &InvalidContainerSpecError{Args: args}
}

// FromMarker resolves the marker variant: explicit marker arguments win;
// with none given, the parametrized funcargs are consulted for an "image"
// entry; otherwise NoContainerSpecifiedError.
func FromMarker(args []string, kw Keywords, funcargs map[string]any) (ContainerSpec, error) {
	explicit := len(args) > 0 || kw.Image != "" || kw.Path != "" || kw.Tag != "" || kw.Factory != nil
	if explicit {
		return Resolve(args, kw)
	}
	if image, ok := funcargs["image"].(string); ok && image != "" {
		return ImageSpec{Image: image}, nil
	}
	return nil, &NoContainerSpecifiedError{}
}
