// Package netproxy builds HTTP clients that route outbound provider traffic
// (cloud transcription, speech synthesis) through an optional SOCKS5 proxy.
package netproxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// Config describes the proxy. An empty Address means direct connections.
type Config struct {
	Address  string
	Username string
	Password string
	Timeout  time.Duration
}

// NewClient returns an HTTP client for cfg. Without an address it returns a
// plain client with the configured timeout.
func NewClient(cfg Config) (*http.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if cfg.Address == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	var auth *proxy.Auth
	if cfg.Username != "" {
		auth = &proxy.Auth{User: cfg.Username, Password: cfg.Password}
	}
	dialer, err := proxy.SOCKS5("tcp", cfg.Address, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("netproxy: socks5 %s: %w", cfg.Address, err)
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		},
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}
