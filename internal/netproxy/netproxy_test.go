package netproxy

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestNewClient_Direct(t *testing.T) {
	t.Parallel()
	c, err := NewClient(Config{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Transport != nil {
		t.Errorf("direct client should use the default transport, got %T", c.Transport)
	}
	if c.Timeout != 5*time.Second {
		t.Errorf("timeout: got %v, want 5s", c.Timeout)
	}
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	t.Parallel()
	c, err := NewClient(Config{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Timeout != 120*time.Second {
		t.Errorf("timeout: got %v, want 120s", c.Timeout)
	}
}

func TestNewClient_SOCKSUnreachable(t *testing.T) {
	t.Parallel()
	// Reserve a port and release it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c, err := NewClient(Config{Address: addr, Username: "u", Password: "p", Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, ok := c.Transport.(*http.Transport); !ok {
		t.Fatalf("transport: got %T, want *http.Transport", c.Transport)
	}

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://example.invalid/", nil)
	if _, err := c.Do(req); err == nil {
		t.Fatal("expected dial error through a dead proxy")
	}
}
