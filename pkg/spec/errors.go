package spec

import "fmt"

// InvalidContainerSpecError reports a malformed or ambiguous container
// specification. It is fatal; no container is touched once it is raised.
type InvalidContainerSpecError struct {
	Args    []string
	Keyword string
	Message string
}

// Error implements the error interface.
func (e *InvalidContainerSpecError) Error() string {
	if e.Message != "" {
		return "invalid container spec: " + e.Message
	}
	return fmt.Sprintf("invalid container spec: got args=%v. Expected (image) or (path, tag)", e.Args)
}

// NoContainerSpecifiedError reports that the marker surface was used with
// no explicit arguments and no resolvable "image" funcarg.
type NoContainerSpecifiedError struct{}

// Error implements the error interface.
func (e *NoContainerSpecifiedError) Error() string {
	return "no container specified: pass an image, a path+tag pair, a factory, " +
		"or provide 'image' via parametrized funcargs"
}
