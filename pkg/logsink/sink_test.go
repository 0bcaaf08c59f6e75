package logsink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hbmartin/webview-ipc/pkg/protocol"
	"github.com/hbmartin/webview-ipc/pkg/transport"
)

type entry struct {
	level   Level
	message string
	data    any
}

type memorySink struct {
	mu      sync.Mutex
	entries []entry
}

func (m *memorySink) Log(_ context.Context, level Level, message string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry{level, message, data})
}

type failingTransport struct{}

func (failingTransport) Send(context.Context, any) error { return errors.New("offline") }
func (failingTransport) Subscribe(func(any)) func()      { return func() {} }

func TestSlogLevel(t *testing.T) {
	tests := map[Level]slog.Level{
		LevelDebug: slog.LevelDebug,
		LevelInfo:  slog.LevelInfo,
		LevelWarn:  slog.LevelWarn,
		LevelError: slog.LevelError,
		"verbose":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := SlogLevel(in); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSlogSinkWritesSanitizedData(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewSlogSink(logger)

	sink.Log(context.Background(), LevelWarn, "login failed", map[string]any{
		"user":     "ann",
		"password": "hunter2",
	})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", buf.String(), err)
	}
	if line["level"] != "WARN" || line["msg"] != "login failed" {
		t.Errorf("unexpected line: %v", line)
	}
	data, _ := line["data"].(map[string]any)
	if data["user"] != "ann" {
		t.Errorf("data = %v", line["data"])
	}
	if strings.Contains(buf.String(), "hunter2") {
		t.Error("password leaked into log output")
	}
}

func TestSlogSinkWithoutData(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSlogSink(slog.New(slog.NewTextHandler(&buf, nil)))

	sink.Log(context.Background(), LevelInfo, "ready", nil)
	if strings.Contains(buf.String(), "data=") {
		t.Errorf("unexpected data attribute: %q", buf.String())
	}
}

func TestRemoteForwardsToHandler(t *testing.T) {
	host, client := transport.Pipe()
	defer host.Close()

	sink := &memorySink{}
	handler := NewHandler(sink)
	handled := make(chan bool, 1)
	host.Subscribe(func(msg any) {
		handled <- handler.HandleMessage(context.Background(), msg)
	})

	remote := NewRemote(client)
	remote.Log(context.Background(), LevelError, "render failed", map[string]any{
		"view":  "main",
		"token": "abc",
	})
	if err := remote.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	select {
	case ok := <-handled:
		if !ok {
			t.Fatal("handler rejected log envelope")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("log envelope never arrived")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(sink.entries))
	}
	got := sink.entries[0]
	if got.level != LevelError || got.message != "render failed" {
		t.Errorf("entry = %+v", got)
	}
	data := got.data.(map[string]any)
	if _, ok := data["token"]; ok {
		t.Error("token crossed the transport")
	}
	if data["view"] != "main" {
		t.Errorf("data = %v", data)
	}
}

func TestRemoteUnserializableData(t *testing.T) {
	host, client := transport.Pipe()
	defer host.Close()

	got := make(chan any, 1)
	host.Subscribe(func(msg any) { got <- msg })

	NewRemote(client).Log(context.Background(), LevelInfo, "odd", map[string]any{"ch": make(chan int)})

	select {
	case msg := <-got:
		l, ok := protocol.ParseLog(msg)
		if !ok {
			t.Fatalf("not a log envelope: %#v", msg)
		}
		if l.Data != Unserializable {
			t.Errorf("data = %#v, want %q", l.Data, Unserializable)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("log envelope never arrived")
	}
}

func TestRemoteRecordsSendFailure(t *testing.T) {
	remote := NewRemote(failingTransport{}, WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	remote.Log(context.Background(), "bogus", "x", nil)
	if remote.Err() == nil {
		t.Fatal("expected send failure to be recorded")
	}
}

func TestHandlerIgnoresOtherMessages(t *testing.T) {
	sink := &memorySink{}
	h := NewHandler(sink)

	msgs := []any{
		nil,
		"log",
		map[string]any{"type": "request", "id": "1", "key": "k", "params": []any{}},
		map[string]any{"type": "log", "level": "loud", "message": "x"},
		map[string]any{"type": "log", "level": "info"},
	}
	for _, msg := range msgs {
		if h.HandleMessage(context.Background(), msg) {
			t.Errorf("HandleMessage(%#v) = true", msg)
		}
	}
	if len(sink.entries) != 0 {
		t.Errorf("entries = %d, want 0", len(sink.entries))
	}
}
