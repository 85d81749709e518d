package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestConn_Echo(t *testing.T) {
	_, host, port := echoServer(t)
	conn := newConn(host, port.Port(), 2*time.Second)
	defer conn.Close()

	got, err := conn.Echo(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Echo failed: %v", err)
	}
	if got != "hello" {
		t.Errorf("Echo = %q, want hello", got)
	}
}

func TestConn_SyncTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	defer srv.Close()
	host, port := splitHostPort(t, srv.URL)

	conn := newConn(host, port.Port(), 50*time.Millisecond)
	defer conn.Close()

	_, _, err := conn.Post(context.Background(), "/call", "application/json", []byte("{}"))
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
}
