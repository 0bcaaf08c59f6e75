// Package logsink forwards structured log lines across the bridge.
//
// Every payload handed to a sink is sanitized first: the keys password,
// secret, token, apikey, apisecret and content are removed at any depth,
// and a payload that cannot be serialized is replaced by the literal
// "unserializable data".
package logsink

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hbmartin/webview-ipc/pkg/protocol"
	"github.com/hbmartin/webview-ipc/pkg/transport"
)

// Level is a wire log level.
type Level = protocol.LogLevel

const (
	LevelDebug = protocol.LevelDebug
	LevelInfo  = protocol.LevelInfo
	LevelWarn  = protocol.LevelWarn
	LevelError = protocol.LevelError
)

// Sink accepts leveled log lines with optional structured data.
type Sink interface {
	Log(ctx context.Context, level Level, message string, data any)
}

// SlogLevel maps a wire level to a slog level. Unknown levels map to info.
func SlogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SlogSink writes log lines to a slog.Logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink returns a Sink backed by logger, or slog.Default() when nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Log implements Sink.
func (s *SlogSink) Log(ctx context.Context, level Level, message string, data any) {
	if data == nil {
		s.logger.Log(ctx, SlogLevel(level), message)
		return
	}
	s.logger.Log(ctx, SlogLevel(level), message, "data", Prepare(data))
}

// Remote sends log lines to the host as log envelopes.
type Remote struct {
	transport transport.Transport
	logger    *slog.Logger

	mu      sync.Mutex
	lastErr error
}

// RemoteOption configures a Remote sink.
type RemoteOption func(*Remote)

// WithLogger sets the logger used to report send failures.
func WithLogger(logger *slog.Logger) RemoteOption {
	return func(r *Remote) {
		r.logger = logger
	}
}

// NewRemote returns a Sink that forwards to the host over t.
func NewRemote(t transport.Transport, opts ...RemoteOption) *Remote {
	r := &Remote{transport: t, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Log implements Sink. Send failures are recorded and never returned.
func (r *Remote) Log(ctx context.Context, level Level, message string, data any) {
	if !level.Valid() {
		level = LevelInfo
	}
	err := transport.SafeSend(ctx, r.transport, protocol.NewLog(level, message, Prepare(data)))

	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()

	if err != nil {
		r.logger.Debug("log forward failed", "error", err, "message", message)
	}
}

// Err returns the error from the most recent send, if any.
func (r *Remote) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Handler consumes log envelopes on the host side.
type Handler struct {
	sink Sink
}

// NewHandler returns a Handler that writes to sink.
func NewHandler(sink Sink) *Handler {
	return &Handler{sink: sink}
}

// HandleMessage logs msg if it is a log envelope and reports whether it was.
// Data from the client is sanitized again before it reaches the sink.
func (h *Handler) HandleMessage(ctx context.Context, msg any) bool {
	l, ok := protocol.ParseLog(msg)
	if !ok {
		return false
	}
	h.sink.Log(ctx, l.Level, l.Message, Prepare(l.Data))
	return true
}
