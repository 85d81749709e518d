package invoke

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/mesa-dot-dev/pytest-in-docker/pkg/closure"
	"github.com/mesa-dot-dev/pytest-in-docker/pkg/debug"
	"github.com/mesa-dot-dev/pytest-in-docker/pkg/observability"
	"github.com/mesa-dot-dev/pytest-in-docker/pkg/sandbox"
)

// RemoteError is an exception raised inside the sandboxed call, re-raised
// locally with its original type and message. Assertion distinguishes
// test-assertion failures from arbitrary remote exceptions.
type RemoteError struct {
	Type      string
	Message   string
	Assertion bool
	Traceback string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Message == "" {
		return e.Type
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

type referenceRequest struct {
	Source string         `json:"source"`
	Name   string         `json:"name"`
	Args   []any          `json:"args,omitempty"`
	Kwargs map[string]any `json:"kwargs,omitempty"`
}

type resultEnvelope struct {
	OK    bool           `json:"ok"`
	Value any            `json:"value"`
	Error *remoteFailure `json:"error"`
}

type remoteFailure struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Assertion bool   `json:"assertion"`
	Traceback string `json:"traceback"`
}

// ByReference recompiles fn to a self-contained form and has the remote
// side compile and call it. Suited to simple, dependency-free bodies.
func ByReference(ctx context.Context, conn *sandbox.Conn, fn *closure.Func, args []any, kwargs map[string]any) (any, error) {
	clean, err := closure.Recompile(fn)
	if err != nil {
		return nil, fmt.Errorf("recompiling %q: %w", fn.Name, err)
	}
	body, err := json.Marshal(referenceRequest{
		Source: clean.Source,
		Name:   clean.Name,
		Args:   args,
		Kwargs: kwargs,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal call request: %w", err)
	}
	debug.Log("invoke", "by-reference call", "func", fn.Name)
	debug.Trace("invoke", "wire request", "body", string(body))
	return call(ctx, conn, "application/json", body)
}

// ByValue rehomes fn into a self-contained namespace and sends the whole
// namespace by value. Required whenever the body references module-level
// imports, constants, or helper functions.
func ByValue(ctx context.Context, conn *sandbox.Conn, fn *closure.Func, args []any, kwargs map[string]any) (any, error) {
	sc, err := closure.Rehome(fn)
	if err != nil {
		return nil, fmt.Errorf("rehoming %q: %w", fn.Name, err)
	}
	payload, err := sc.Payload()
	if err != nil {
		return nil, fmt.Errorf("building payload for %q: %w", fn.Name, err)
	}
	payload.Args = args
	payload.Kwargs = kwargs

	body, err := cbor.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	debug.Log("invoke", "by-value call", "func", fn.Name,
		"functions", len(payload.Functions), "values", len(payload.Values))
	debug.Trace("invoke", "wire request", "cbor_hex", fmt.Sprintf("%x", body))
	return call(ctx, conn, "application/cbor", body)
}

// call performs one synchronous remote invocation. A remote exception is
// returned as *RemoteError; everything else (drop mid-call, timeout,
// undecodable reply) is a protocol failure reported as *PrepareError.
// A failed call is never retried.
func call(ctx context.Context, conn *sandbox.Conn, contentType string, body []byte) (any, error) {
	start := time.Now()
	data, status, err := conn.Post(ctx, "/call", contentType, body)
	observability.RemoteCallDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &sandbox.PrepareError{
			Stage:   sandbox.StageCall,
			Message: "remote call transport failed",
			Err:     err,
		}
	}
	debug.Trace("invoke", "wire reply", "status", status, "body", string(data))

	var envelope resultEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, &sandbox.PrepareError{
			Stage:   sandbox.StageCall,
			Message: fmt.Sprintf("undecodable reply (HTTP %d): %.200s", status, data),
			Err:     err,
		}
	}
	// The server answers 200 for every user-code outcome, pass or fail;
	// any other status means the server itself broke (payload it could
	// not deserialize, missing decoder, handler bug). That is a protocol
	// failure even when the reply names an exception type.
	if status != http.StatusOK {
		msg := fmt.Sprintf("execution server error (HTTP %d)", status)
		if envelope.Error != nil {
			msg = fmt.Sprintf("execution server error (HTTP %d): %s: %s",
				status, envelope.Error.Type, envelope.Error.Message)
		}
		return nil, &sandbox.PrepareError{
			Stage:   sandbox.StageCall,
			Message: msg,
		}
	}
	if envelope.OK {
		return envelope.Value, nil
	}
	if envelope.Error == nil {
		return nil, &sandbox.PrepareError{
			Stage:   sandbox.StageCall,
			Message: "failure reply without error detail",
		}
	}
	return nil, &RemoteError{
		Type:      envelope.Error.Type,
		Message:   envelope.Error.Message,
		Assertion: envelope.Error.Assertion,
		Traceback: envelope.Error.Traceback,
	}
}
