// Package invoke ships sanitized callables across a bootstrapped sandbox
// connection and relays their results or failures back to the caller.
//
// ByReference sends the bare recompiled source of a self-contained
// function; the remote side compiles it in an empty namespace and calls
// it. ByValue serializes the full rehomed namespace with CBOR, so
// module-level constants, imports, and transitively reached helpers
// survive the transfer. Exceptions raised inside the remote call are
// re-raised locally as RemoteError with the original type and message;
// protocol-level failures surface as container-prepare-class errors and
// are never silently swallowed or retried.
package invoke
