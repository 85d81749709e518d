// Package sandbox provisions a remote execution environment inside a
// running container and hands back a live, verified connection to it.
//
// Bootstrap drives a strictly ordered sequence: locate a Python
// interpreter, check its major.minor version against the configured host
// target, install the execution-server dependencies (venv first, with a
// --break-system-packages fallback for minimal images), inject and launch
// the embedded server script, then connect with bounded retries and verify
// liveness with an echo round trip. The first failing stage is terminal;
// only the connect loop retries, and only on transient transport errors.
package sandbox
