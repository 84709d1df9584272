package sessions_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/USA-RedDragon/walletkit-bridge/internal/sessions"
)

type recordingInjector struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (r *recordingInjector) InjectEvent(event json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, string(event))
	return nil
}

func TestRegistryLookup(t *testing.T) {
	t.Parallel()
	registry := sessions.NewRegistry()
	a := &recordingInjector{}
	registry.Register("a", a)

	got, ok := registry.InjectorForSession("a")
	if !ok || got != a {
		t.Errorf("expected injector for a, got %v %v", got, ok)
	}
	if _, ok := registry.InjectorForSession("missing"); ok {
		t.Error("expected no injector for missing session")
	}
}

func TestRegistryBroadcast(t *testing.T) {
	t.Parallel()
	registry := sessions.NewRegistry()
	a := &recordingInjector{}
	b := &recordingInjector{}
	broken := &recordingInjector{err: errors.New("closed")}
	registry.Register("a", a)
	registry.Register("b", b)
	registry.Register("broken", broken)

	delivered := registry.Broadcast(json.RawMessage(`{"type":"disconnect"}`))
	if delivered != 2 {
		t.Errorf("expected 2 deliveries, got %d", delivered)
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("expected one event per session, got %v %v", a.events, b.events)
	}
	if !reflect.DeepEqual(registry.IDs(), []string{"a", "b", "broken"}) {
		t.Errorf("unexpected ids %v", registry.IDs())
	}
}

func TestRegistryUnregisterIf(t *testing.T) {
	t.Parallel()
	registry := sessions.NewRegistry()
	old := &recordingInjector{}
	replacement := &recordingInjector{}
	registry.Register("s", old)
	registry.Register("s", replacement)

	registry.UnregisterIf("s", old)
	if got, ok := registry.InjectorForSession("s"); !ok || got != replacement {
		t.Error("stale unregister must not remove the replacement")
	}
	registry.UnregisterIf("s", replacement)
	if registry.Len() != 0 {
		t.Errorf("expected empty registry, got %d", registry.Len())
	}
	registry.UnregisterIf("never", old)
	if registry.Len() != 0 {
		t.Errorf("expected empty registry, got %d", registry.Len())
	}
}
