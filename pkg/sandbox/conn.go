package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Conn is a live, liveness-verified channel to the execution server of
// exactly one container. It is owned by the orchestrator for the duration
// of one test invocation and never outlives its container.
type Conn struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

func newConn(host string, port string, timeout time.Duration) *Conn {
	return &Conn{
		baseURL: fmt.Sprintf("http://%s:%s", host, port),
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Timeout returns the per-call synchronous timeout the connection was
// configured with.
func (c *Conn) Timeout() time.Duration { return c.timeout }

// Post sends body to the server and returns the raw response body and
// status code. Each call is bounded by the connection's sync timeout.
func (c *Conn) Post(ctx context.Context, path, contentType string, body []byte) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}
	return data, resp.StatusCode, nil
}

// Echo round-trips a value through the server and returns what came back.
// Used for liveness verification after connecting.
func (c *Conn) Echo(ctx context.Context, value string) (string, error) {
	body, err := json.Marshal(map[string]string{"value": value})
	if err != nil {
		return "", fmt.Errorf("marshal echo request: %w", err)
	}
	data, status, err := c.Post(ctx, "/echo", "application/json", body)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("echo returned HTTP %d: %s", status, data)
	}
	var reply struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &reply); err != nil {
		return "", fmt.Errorf("decode echo reply: %w", err)
	}
	return reply.Value, nil
}

// Close releases the connection's resources. The owning container must be
// torn down separately, after Close.
func (c *Conn) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
