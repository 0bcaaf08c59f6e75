package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hbmartin/webview-ipc/internal/config"
)

// Config holds configuration for the HTTP and WebSocket listener.
type Config struct {
	// Address is the TCP address to listen on.
	// Default: "localhost:7331".
	Address string

	// Path serves the WebSocket endpoint views connect to.
	// Default: "/ws".
	Path string

	// RPCPath serves the JSON-RPC 2.0 gateway. Empty disables it.
	// Default: "/rpc".
	RPCPath string

	// MetricsPath serves Gatherer in the Prometheus text format. Empty
	// disables it.
	// Default: "/metrics".
	MetricsPath string

	// Gatherer is exposed at MetricsPath.
	// Default: prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Buffers

	ReadBufferSize  int
	WriteBufferSize int

	// MaxMessageSize is the maximum size of an inbound WebSocket frame.
	// Default: 1MB.
	MaxMessageSize int64

	// Timeouts

	// ReadTimeout bounds reading an HTTP request. Upgraded connections are
	// not affected.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout bounds each WebSocket write and each HTTP response.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown when ListenAndServe's
	// context ends.
	// Default: 5 seconds.
	ShutdownTimeout time.Duration

	// CheckOrigin decides whether a WebSocket upgrade is allowed.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:         "localhost:7331",
		Path:            "/ws",
		RPCPath:         "/rpc",
		MetricsPath:     "/metrics",
		Gatherer:        prometheus.DefaultGatherer,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		MaxMessageSize:  1 << 20,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		CheckOrigin:     SameOriginCheck,
	}
}

// ConfigFrom converts the server section of a loaded bridge.json.
func ConfigFrom(c *config.Config) *Config {
	cfg := DefaultConfig()
	cfg.Address = c.Address()
	cfg.Path = c.Server.Path
	cfg.RPCPath = c.Server.RPCPath
	cfg.ReadBufferSize = c.Server.ReadBufferSize
	cfg.WriteBufferSize = c.Server.WriteBufferSize
	if c.Server.MaxMessageSize > 0 {
		cfg.MaxMessageSize = c.Server.MaxMessageSize
	}
	if d := c.ReadTimeout(); d > 0 {
		cfg.ReadTimeout = d
	}
	if d := c.WriteTimeout(); d > 0 {
		cfg.WriteTimeout = d
	}
	if d := c.ShutdownTimeout(); d > 0 {
		cfg.ShutdownTimeout = d
	}
	if c.Metrics.Enabled {
		cfg.MetricsPath = c.Server.MetricsPath
	} else {
		cfg.MetricsPath = ""
	}
	return cfg
}

// SameOriginCheck allows requests without an Origin header and requests
// whose Origin host matches the request host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if r.Host == "" {
		return false
	}
	return originURL.Host == r.Host
}

// AllowAnyOrigin accepts every upgrade. Webview hosts whose pages load from
// a custom scheme need it.
func AllowAnyOrigin(*http.Request) bool {
	return true
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	out := c.Clone()
	if out.Address == "" {
		out.Address = d.Address
	}
	if out.Path == "" {
		out.Path = d.Path
	}
	if out.ReadBufferSize == 0 {
		out.ReadBufferSize = d.ReadBufferSize
	}
	if out.WriteBufferSize == 0 {
		out.WriteBufferSize = d.WriteBufferSize
	}
	if out.MaxMessageSize == 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = d.ShutdownTimeout
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = d.CheckOrigin
	}
	if out.Gatherer == nil {
		out.Gatherer = d.Gatherer
	}
	return out
}
