// Package runner composes spec resolution, container acquisition, sandbox
// bootstrap, closure sanitization, and remote invocation into one test
// run with guaranteed teardown.
//
// Resource ownership is strictly nested: the connection lives inside the
// container's scope, so on every exit path the connection closes first
// and the container is torn down after it. A failed remote call is never
// retried.
package runner
