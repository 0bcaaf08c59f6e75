package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hbmartin/webview-ipc/internal/errors"
)

// ConfigFileName is the name of the configuration file.
const ConfigFileName = "bridge.json"

// Default values.
const (
	DefaultPort           = 7331
	DefaultHost           = "localhost"
	DefaultPath           = "/ws"
	DefaultRPCPath        = "/rpc"
	DefaultMetricsPath    = "/metrics"
	DefaultProviderID     = "counter"
	DefaultViewType       = "panel"
	DefaultRequestTimeout = "10s"
	DefaultMetricsNS      = "bridge"
	DefaultTracerName     = "webview-ipc"
)

// Config is the contents of bridge.json.
type Config struct {
	// Server configures the HTTP and WebSocket listener.
	Server ServerConfig `json:"server"`

	// Provider names the provider the demo host exposes.
	Provider ProviderConfig `json:"provider"`

	// Client configures the call and listen commands.
	Client ClientConfig `json:"client"`

	// Log configures the process logger.
	Log LogConfig `json:"log"`

	// Metrics configures the Prometheus middleware and endpoint.
	Metrics MetricsConfig `json:"metrics"`

	// Tracing configures the OpenTelemetry middleware.
	Tracing TracingConfig `json:"tracing"`

	// configPath is the file the config was loaded from.
	configPath string
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	Path        string `json:"path,omitempty"`
	RPCPath     string `json:"rpcPath,omitempty"`
	MetricsPath string `json:"metricsPath,omitempty"`

	ReadBufferSize  int `json:"readBufferSize,omitempty"`
	WriteBufferSize int `json:"writeBufferSize,omitempty"`

	// MaxMessageSize limits inbound WebSocket frames in bytes. Zero means
	// no limit.
	MaxMessageSize int64 `json:"maxMessageSize,omitempty"`

	// Timeouts are Go duration strings.
	ReadTimeout     string `json:"readTimeout,omitempty"`
	WriteTimeout    string `json:"writeTimeout,omitempty"`
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`
}

// ProviderConfig identifies the served provider.
type ProviderConfig struct {
	ID       string `json:"id,omitempty"`
	ViewType string `json:"viewType,omitempty"`

	// TickInterval, when set, broadcasts a "tick" event at this interval.
	TickInterval string `json:"tickInterval,omitempty"`
}

// ClientConfig holds settings for outbound calls.
type ClientConfig struct {
	RequestTimeout string `json:"requestTimeout,omitempty"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"` // text or json
}

// MetricsConfig toggles Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace,omitempty"`
}

// TracingConfig toggles OpenTelemetry spans.
type TracingConfig struct {
	Enabled    bool   `json:"enabled"`
	TracerName string `json:"tracerName,omitempty"`
}

// New returns a configuration with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			Path:            DefaultPath,
			RPCPath:         DefaultRPCPath,
			MetricsPath:     DefaultMetricsPath,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			MaxMessageSize:  1 << 20,
			ReadTimeout:     "60s",
			WriteTimeout:    "10s",
			ShutdownTimeout: "5s",
		},
		Provider: ProviderConfig{
			ID:       DefaultProviderID,
			ViewType: DefaultViewType,
		},
		Client: ClientConfig{
			RequestTimeout: DefaultRequestTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultMetricsNS,
		},
		Tracing: TracingConfig{
			TracerName: DefaultTracerName,
		},
	}
}

// Load reads bridge.json from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path. Missing
// fields keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigNotFound).
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path))
		}
		return nil, errors.New(errors.CodeConfigInvalid).Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.CodeConfigInvalid).Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeConfigInvalid).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()

	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.Path == "" {
		c.Server.Path = d.Server.Path
	}
	if c.Server.RPCPath == "" {
		c.Server.RPCPath = d.Server.RPCPath
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = d.Server.MetricsPath
	}
	if c.Server.ReadBufferSize == 0 {
		c.Server.ReadBufferSize = d.Server.ReadBufferSize
	}
	if c.Server.WriteBufferSize == 0 {
		c.Server.WriteBufferSize = d.Server.WriteBufferSize
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = d.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = d.Server.WriteTimeout
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}

	if c.Provider.ID == "" {
		c.Provider.ID = d.Provider.ID
	}
	if c.Provider.ViewType == "" {
		c.Provider.ViewType = d.Provider.ViewType
	}

	if c.Client.RequestTimeout == "" {
		c.Client.RequestTimeout = d.Client.RequestTimeout
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = d.Metrics.Namespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = d.Tracing.TracerName
	}
}

// Validate checks ports, durations and the log settings.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New(errors.CodeInvalidPort).
			WithSubject(fmt.Sprint(c.Server.Port))
	}

	durations := []struct {
		field string
		value string
	}{
		{"server.readTimeout", c.Server.ReadTimeout},
		{"server.writeTimeout", c.Server.WriteTimeout},
		{"server.shutdownTimeout", c.Server.ShutdownTimeout},
		{"provider.tickInterval", c.Provider.TickInterval},
		{"client.requestTimeout", c.Client.RequestTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		if v, err := time.ParseDuration(d.value); err != nil || v < 0 {
			return errors.New(errors.CodeInvalidDuration).
				WithSubject(d.field).
				WithDetail(fmt.Sprintf("%q is not a valid duration", d.value))
		}
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return errors.New(errors.CodeConfigInvalid).
			WithSubject("log.format").
			WithDetail(fmt.Sprintf("unknown log format %q, want text or json", c.Log.Format))
	}
	return nil
}

// Address returns host:port for the listener.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// URL returns the WebSocket URL clients dial.
func (c *Config) URL() string {
	return "ws://" + c.Address() + c.Server.Path
}

// ReadTimeout returns the parsed server read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return duration(c.Server.ReadTimeout)
}

// WriteTimeout returns the parsed server write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return duration(c.Server.WriteTimeout)
}

// ShutdownTimeout returns the parsed graceful shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	return duration(c.Server.ShutdownTimeout)
}

// RequestTimeout returns the parsed client request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return duration(c.Client.RequestTimeout)
}

// TickInterval returns the parsed broadcast interval, zero when disabled.
func (c *Config) TickInterval() time.Duration {
	return duration(c.Provider.TickInterval)
}

// duration parses s, returning zero for empty or invalid values. Validate
// reports invalid values.
func duration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, errors.New(errors.CodeInvalidLogLevel).WithSubject(s)
}

// Logger builds the process logger described by the log section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := ParseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}
