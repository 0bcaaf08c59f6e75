package rpc

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/hbmartin/webview-ipc/pkg/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeTransport records what is sent as plain trees and lets the test
// deliver inbound messages synchronously.
type fakeTransport struct {
	mu      sync.Mutex
	sent    []any
	subs    map[int]func(any)
	nextSub int
	sendErr error
	panics  bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{subs: make(map[int]func(any))}
}

func (f *fakeTransport) Send(_ context.Context, msg any) error {
	if f.panics {
		panic("transport exploded")
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	plain, err := protocol.Clone(msg)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.sent = append(f.sent, plain)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Subscribe(fn func(any)) func() {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *fakeTransport) deliver(msg any) {
	plain, err := protocol.Clone(msg)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	subs := make([]func(any), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(plain)
	}
}

func (f *fakeTransport) messages() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.sent...)
}

func (f *fakeTransport) last(t *testing.T) map[string]any {
	t.Helper()
	msgs := f.messages()
	if len(msgs) == 0 {
		t.Fatal("nothing was sent")
	}
	return msgs[len(msgs)-1].(map[string]any)
}

func (f *fakeTransport) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func awaitFuture(t *testing.T, f *Future) (any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := f.Await(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("future %s never settled", f.ID())
	}
	return v, err
}
