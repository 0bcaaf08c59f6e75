package host

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/hbmartin/webview-ipc/pkg/action"
	"github.com/hbmartin/webview-ipc/pkg/logsink"
	"github.com/hbmartin/webview-ipc/pkg/reducer"
	"github.com/hbmartin/webview-ipc/pkg/rpc"
	"github.com/hbmartin/webview-ipc/pkg/transport"
)

type memorySink struct {
	mu       sync.Mutex
	messages []string
}

func (m *memorySink) Log(_ context.Context, _ logsink.Level, message string, _ any) {
	m.mu.Lock()
	m.messages = append(m.messages, message)
	m.mu.Unlock()
}

type genericRecorder struct {
	mu   sync.Mutex
	msgs []any
	ctxs []context.Context
}

func (g *genericRecorder) handle(ctx context.Context, _ string, _ transport.Transport, msg any) {
	g.mu.Lock()
	g.msgs = append(g.msgs, msg)
	g.ctxs = append(g.ctxs, ctx)
	g.mu.Unlock()
}

type testProvider struct {
	*Provider
	sink    *memorySink
	generic *genericRecorder
	errs    *[]error
}

func newTestProvider(t *testing.T) testProvider {
	t.Helper()
	actions, err := action.NewDispatcher("p", map[string]action.Delegate{
		"increment": func(context.Context, []any) (any, error) { return 1, nil },
	}, action.WithLogger(testLogger()))
	if err != nil {
		t.Fatal(err)
	}
	handlers := rpc.NewDispatcher(map[string]rpc.Handler{
		"fetchData": func(_ context.Context, params []any) (any, error) {
			return map[string]any{"data": "for " + params[0].(string)}, nil
		},
	}, rpc.WithLogger(testLogger()))

	sink := &memorySink{}
	generic := &genericRecorder{}
	var mu sync.Mutex
	errs := []error{}
	p := NewProvider("panel",
		WithLogger(testLogger()),
		WithActions(actions),
		WithRPC(handlers),
		WithLogSink(sink),
		WithGenericHandler(generic.handle),
		WithErrorHandler(func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}),
	)
	t.Cleanup(p.Dispose)
	return testProvider{Provider: p, sink: sink, generic: generic, errs: &errs}
}

func TestProviderRoutingPriority(t *testing.T) {
	tp := newTestProvider(t)
	v := &fakeView{}
	tp.Attach(context.Background(), "view-1", v)

	// A log envelope goes to the sink only.
	v.deliver(map[string]any{"type": "log", "level": "info", "message": "hello"})
	// An act for this provider goes to the action dispatcher.
	v.deliver(map[string]any{"type": "act", "providerId": "p", "key": "increment", "params": []any{}})
	// An act for another provider falls through to generic handling.
	v.deliver(map[string]any{"type": "act", "providerId": "q", "key": "increment", "params": []any{}})
	// A request goes to the RPC dispatcher.
	v.deliver(map[string]any{"type": "request", "id": "r1", "key": "fetchData", "params": []any{"x"}})
	// Anything else goes to the generic handler.
	v.deliver(map[string]any{"type": "custom"})
	tp.Wait()

	if !reflect.DeepEqual(tp.sink.messages, []string{"hello"}) {
		t.Errorf("sink = %v", tp.sink.messages)
	}
	if len(tp.generic.msgs) != 2 {
		t.Fatalf("generic received %d messages, want 2: %#v", len(tp.generic.msgs), tp.generic.msgs)
	}
	if tp.generic.msgs[0].(map[string]any)["providerId"] != "q" {
		t.Errorf("first generic message = %#v", tp.generic.msgs[0])
	}

	sent := v.messages()
	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want patch and response: %#v", len(sent), sent)
	}
	wantPatch := map[string]any{"type": "patch", "providerId": "p", "key": "increment", "patch": float64(1)}
	wantResp := map[string]any{"type": "response", "id": "r1", "value": map[string]any{"data": "for x"}}
	if !reflect.DeepEqual(sent[0], wantPatch) {
		t.Errorf("patch = %#v", sent[0])
	}
	if !reflect.DeepEqual(sent[1], wantResp) {
		t.Errorf("response = %#v", sent[1])
	}
}

func TestProviderUnknownActionIsReported(t *testing.T) {
	tp := newTestProvider(t)
	v := &fakeView{}
	tp.Attach(context.Background(), "view-1", v)

	v.deliver(map[string]any{"type": "act", "providerId": "p", "key": "decrement", "params": []any{}})

	if len(*tp.errs) != 1 {
		t.Fatalf("errors = %v", *tp.errs)
	}
	var fatal *action.FatalError
	if !errors.As((*tp.errs)[0], &fatal) {
		t.Fatalf("err = %v, want *action.FatalError", (*tp.errs)[0])
	}
	if len(v.messages()) != 0 {
		t.Fatal("no patch should be sent for an unknown action")
	}
	if len(tp.generic.msgs) != 0 {
		t.Fatal("an act for this provider must not fall through")
	}
}

func TestProviderViewContext(t *testing.T) {
	tp := newTestProvider(t)
	v := &fakeView{}
	tp.Attach(context.Background(), "view-1", v)

	v.deliver(map[string]any{"type": "custom"})
	rc, ok := ViewFrom(tp.generic.ctxs[0])
	if !ok || rc.ViewID != "view-1" || rc.ViewType != "panel" {
		t.Fatalf("ViewFrom() = %+v, %v", rc, ok)
	}
}

func TestProviderAttachReplacesAndDetaches(t *testing.T) {
	tp := newTestProvider(t)
	first, second := &fakeView{}, &fakeView{}

	detachFirst := tp.Attach(context.Background(), "view-1", first)
	if tp.Attach(context.Background(), "view-1", first); first.activeSubs() != 1 {
		t.Fatalf("re-attaching the same transport subscribed %d times", first.activeSubs())
	}

	detachSecond := tp.Attach(context.Background(), "view-1", second)
	if first.activeSubs() != 0 {
		t.Fatal("replaced transport is still subscribed")
	}
	if tp.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", tp.Count())
	}

	// Detaching the stale handle leaves the new view in place.
	detachFirst()
	if tp.Count() != 1 {
		t.Fatal("stale detach removed the replacement")
	}

	detachSecond()
	detachSecond()
	if tp.Count() != 0 || second.activeSubs() != 0 {
		t.Fatal("detach did not release the view")
	}
}

func TestProviderReattachAfterFailedBroadcast(t *testing.T) {
	tp := newTestProvider(t)
	v := &fakeView{failWith: errors.New("gone")}
	tp.Attach(context.Background(), "view-1", v)

	res := tp.Broadcast(context.Background(), "refresh")
	if !reflect.DeepEqual(res.Failed, []string{"view-1"}) || tp.Count() != 0 {
		t.Fatalf("Broadcast() = %+v, Count() = %d", res, tp.Count())
	}

	v.failWith = nil
	tp.Attach(context.Background(), "view-1", v)
	if tp.Count() != 1 {
		t.Fatalf("Count() = %d after re-attach, want 1", tp.Count())
	}
	if v.activeSubs() != 1 {
		t.Fatalf("subscriptions = %d, want 1", v.activeSubs())
	}
	if res := tp.Broadcast(context.Background(), "refresh"); res.Delivered != 1 {
		t.Fatalf("Broadcast() after re-attach = %+v", res)
	}
}

func TestProviderDetachReleasesDisposeHooks(t *testing.T) {
	tp := newTestProvider(t)
	first, second := &fakeView{}, &fakeView{}

	detach := tp.Attach(context.Background(), "view-1", first)
	if first.activeHooks() != 2 {
		t.Fatalf("dispose hooks = %d, want 2", first.activeHooks())
	}
	detach()
	if first.activeHooks() != 0 {
		t.Fatalf("dispose hooks = %d after detach, want 0", first.activeHooks())
	}

	tp.Attach(context.Background(), "view-1", first)
	tp.Attach(context.Background(), "view-1", second)
	if first.activeHooks() != 0 {
		t.Fatalf("replaced transport kept %d dispose hooks", first.activeHooks())
	}

	// Disposing a transport that is no longer attached must not touch
	// the replacement.
	first.dispose()
	if tp.Count() != 1 || second.activeSubs() != 1 {
		t.Fatalf("Count() = %d subs = %d", tp.Count(), second.activeSubs())
	}
}

// unsubscribeHookView runs onUnsubscribe when its subscription is released.
type unsubscribeHookView struct {
	fakeView
	onUnsubscribe func()
}

func (v *unsubscribeHookView) Subscribe(fn func(any)) func() {
	unsubscribe := v.fakeView.Subscribe(fn)
	return func() {
		unsubscribe()
		if v.onUnsubscribe != nil {
			v.onUnsubscribe()
		}
	}
}

func TestProviderReplaceRacingDispose(t *testing.T) {
	tp := newTestProvider(t)
	first, second := &unsubscribeHookView{}, &fakeView{}
	tp.Attach(context.Background(), "view-1", first)

	// Dispose lands while the previous view is being detached.
	first.onUnsubscribe = tp.Dispose
	tp.Attach(context.Background(), "view-1", second)

	if second.activeSubs() != 0 || second.activeHooks() != 0 {
		t.Fatalf("disposed provider attached the replacement: subs = %d hooks = %d",
			second.activeSubs(), second.activeHooks())
	}
	if tp.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", tp.Count())
	}
}

func TestProviderTransportDisposal(t *testing.T) {
	tp := newTestProvider(t)
	v := &fakeView{}
	tp.Attach(context.Background(), "view-1", v)

	v.dispose()
	if tp.Count() != 0 || v.activeSubs() != 0 {
		t.Fatalf("Count() = %d subs = %d after disposal", tp.Count(), v.activeSubs())
	}
}

func TestProviderDispose(t *testing.T) {
	tp := newTestProvider(t)
	a, b := &fakeView{}, &fakeView{}
	tp.Attach(context.Background(), "a", a)
	tp.Attach(context.Background(), "b", b)

	tp.Dispose()
	tp.Dispose()

	if tp.Count() != 0 || a.activeSubs() != 0 || b.activeSubs() != 0 {
		t.Fatal("Dispose did not detach every view")
	}
	if res := tp.Broadcast(context.Background(), "x"); res.Delivered != 0 {
		t.Fatalf("broadcast after dispose = %+v", res)
	}
	tp.Attach(context.Background(), "c", &fakeView{})
	if tp.Count() != 0 {
		t.Fatal("Attach after Dispose should be refused")
	}
}

func TestProviderEndToEnd(t *testing.T) {
	tp := newTestProvider(t)
	hostSide, viewSide := transport.NamedPipe("host", "view", testLogger())
	defer hostSide.Close()
	tp.Attach(context.Background(), "view-1", hostSide)

	client, err := rpc.NewClient(viewSide, rpc.WithLogger(testLogger()))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Dispose()

	type counter struct{ Count int }
	store, err := reducer.New("p", viewSide, counter{}, reducer.Reducers[counter]{
		"increment": func(s counter, p any) counter { return counter{Count: s.Count + int(p.(float64))} },
	}, reducer.WithLogger(testLogger()))
	if err != nil {
		t.Fatal(err)
	}
	store.Mount()
	defer store.Unmount()

	events := make(chan []any, 1)
	client.On("refresh", func(args ...any) { events <- args })
	applied := make(chan counter, 1)
	store.Watch(func(c counter) { applied <- c })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	v, err := client.Call(ctx, "fetchData", "x")
	if err != nil || !reflect.DeepEqual(v, map[string]any{"data": "for x"}) {
		t.Fatalf("Call() = %v, %v", v, err)
	}

	if err := store.Actor().Invoke(ctx, "increment"); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-applied:
		if c.Count != 1 {
			t.Fatalf("state = %+v", c)
		}
	case <-ctx.Done():
		t.Fatal("patch never applied")
	}

	logsink.NewRemote(viewSide).Log(ctx, logsink.LevelInfo, "from view", map[string]any{"password": "x"})

	res := tp.Broadcast(ctx, "refresh", 42)
	if res.Delivered != 1 {
		t.Fatalf("broadcast = %+v", res)
	}
	select {
	case args := <-events:
		if !reflect.DeepEqual(args, []any{float64(42)}) {
			t.Fatalf("event args = %#v", args)
		}
	case <-ctx.Done():
		t.Fatal("event never arrived")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		tp.sink.mu.Lock()
		n := len(tp.sink.messages)
		tp.sink.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("log line never reached the sink")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
