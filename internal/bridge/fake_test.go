package bridge_test

import (
	"encoding/base64"
	"encoding/json"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/USA-RedDragon/walletkit-bridge/internal/engine"
)

var callPattern = regexp.MustCompile(`^walletkitCall\("([^"]+)", "([^"]+)", (?:null|atob\("([A-Za-z0-9+/=]*)"\))\)$`)

type injectedCall struct {
	ID     string
	Method string
	Params json.RawMessage
}

func parseCall(t *testing.T, script string) injectedCall {
	t.Helper()
	// Runs on caller goroutines, so no t.Fatal here.
	m := callPattern.FindStringSubmatch(script)
	if m == nil {
		t.Errorf("unexpected script %q", script)
		return injectedCall{}
	}
	call := injectedCall{ID: m[1], Method: m[2]}
	if m[3] != "" {
		decoded, err := base64.StdEncoding.DecodeString(m[3])
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		call.Params = decoded
	}
	return call
}

// fakeTransport records injected scripts. With a responder installed it
// answers every call synchronously, before ExecuteJavaScript returns.
type fakeTransport struct {
	*engine.Latches
	t *testing.T

	mu        sync.Mutex
	calls     []injectedCall
	handler   engine.MessageHandler
	responder func(call injectedCall) string
	execErr   error
	closed    bool
}

func newFakeTransport(t *testing.T) *fakeTransport {
	t.Helper()
	return &fakeTransport{
		Latches: engine.NewLatches(),
		t:       t,
	}
}

// ready completes every engine latch, as a loaded engine would.
func (f *fakeTransport) ready() *fakeTransport {
	f.Initialized.Complete()
	f.BridgeLoaded.Complete()
	f.JSReady.Complete()
	return f
}

func (f *fakeTransport) respondWith(responder func(call injectedCall) string) *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responder = responder
	return f
}

func (f *fakeTransport) ExecuteJavaScript(script string) error {
	call := parseCall(f.t, script)
	f.mu.Lock()
	if f.execErr != nil {
		err := f.execErr
		f.mu.Unlock()
		return err
	}
	f.calls = append(f.calls, call)
	responder, handler := f.responder, f.handler
	f.mu.Unlock()

	if responder != nil && handler != nil {
		if msg := responder(call); msg != "" {
			handler([]byte(msg))
		}
	}
	return nil
}

func (f *fakeTransport) MarkBridgeLoaded() {
	f.BridgeLoaded.Complete()
}

func (f *fakeTransport) MarkJSReady() {
	f.JSReady.Complete()
}

func (f *fakeTransport) SetMessageHandler(handler engine.MessageHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.Latches.Fail(engine.ErrEngineStopped)
	return nil
}

func (f *fakeTransport) post(msg string) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	handler([]byte(msg))
}

func (f *fakeTransport) injected() []injectedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]injectedCall(nil), f.calls...)
}

func (f *fakeTransport) count(method string) int {
	n := 0
	for _, call := range f.injected() {
		if call.Method == method {
			n++
		}
	}
	return n
}

// waitForCalls blocks until at least n scripts were injected.
func (f *fakeTransport) waitForCalls(n int) []injectedCall {
	f.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if calls := f.injected(); len(calls) >= n {
			return calls
		}
		time.Sleep(time.Millisecond)
	}
	f.t.Fatalf("timed out waiting for %d injected calls, got %d", n, len(f.injected()))
	return nil
}

func okResponder(call injectedCall) string {
	return responseJSON(call.ID, `{}`)
}

func responseJSON(id string, result string) string {
	return `{"kind":"response","id":"` + id + `","result":` + result + `}`
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}
