package events_test

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/USA-RedDragon/walletkit-bridge/internal/events"
)

func TestParseKnownTypes(t *testing.T) {
	t.Parallel()
	parser := events.NewParser()
	tests := []struct {
		eventType string
		data      string
		want      events.EventType
	}{
		{"ready", `{"network":"-239"}`, events.EventTypeReady},
		{"connectRequest", `{"id":"1","dAppInfo":{"name":"dApp"}}`, events.EventTypeConnectRequest},
		{"transactionRequest", `{"id":"2","walletAddress":"EQ"}`, events.EventTypeTransactionRequest},
		{"signDataRequest", `{"id":"3"}`, events.EventTypeSignDataRequest},
		{"disconnect", `{"sessionId":"s"}`, events.EventTypeDisconnect},
		{"requestError", `{"message":"bad"}`, events.EventTypeRequestError},
		{"browserPageStarted", `{"url":"https://example.com"}`, events.EventTypeBrowserPageStarted},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			t.Parallel()
			ev, err := parser.Parse(tt.eventType, json.RawMessage(tt.data), nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ev == nil {
				t.Fatal("expected event, got nil")
			}
			if ev.GetType() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, ev.GetType())
			}
		})
	}
}

func TestParseKeepsRequestPayload(t *testing.T) {
	t.Parallel()
	data := json.RawMessage(`{"id":"1","dAppInfo":{"name":"dApp","url":"https://dapp.example"}}`)
	ev, err := events.NewParser().Parse("connectRequest", data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, ok := ev.(events.ConnectRequestEvent)
	if !ok {
		t.Fatalf("unexpected event type %T", ev)
	}
	if req.DApp.Name != "dApp" || string(req.Request) != string(data) {
		t.Errorf("unexpected event %+v", req)
	}
}

func TestParseUnknownTypeIsNil(t *testing.T) {
	t.Parallel()
	ev, err := events.NewParser().Parse("x", json.RawMessage(`{}`), nil)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if ev != nil {
		t.Errorf("expected nil event, got %v", ev)
	}
}

func TestParseMalformedData(t *testing.T) {
	t.Parallel()
	_, err := events.NewParser().Parse("disconnect", json.RawMessage(`[1,2]`), nil)
	if err == nil {
		t.Error("expected error, got nil")
	}
}

func TestRouterReplaysQueuedEvents(t *testing.T) {
	t.Parallel()
	router := events.NewRouter()
	router.Dispatch("1", "disconnect", events.DisconnectEvent{SessionID: "a"})
	router.Dispatch("2", "disconnect", events.DisconnectEvent{SessionID: "b"})
	if router.QueuedCount() != 2 {
		t.Errorf("expected 2 queued events, got %d", router.QueuedCount())
	}

	var got []string
	router.AddHandler(events.HandlerFunc(func(id string, _ events.Event) {
		got = append(got, id)
	}))
	router.Dispatch("3", "disconnect", events.DisconnectEvent{SessionID: "c"})

	if strings.Join(got, ",") != "1,2,3" {
		t.Errorf("expected 1,2,3, got %v", got)
	}
	if router.QueuedCount() != 0 {
		t.Errorf("expected empty queue, got %d", router.QueuedCount())
	}
}

func TestRouterLiveEventWaitsForReplay(t *testing.T) {
	t.Parallel()
	router := events.NewRouter()
	router.Dispatch("e1", "disconnect", events.DisconnectEvent{})
	router.Dispatch("e2", "disconnect", events.DisconnectEvent{})

	var mu sync.Mutex
	var got []string
	entered := make(chan struct{})
	release := make(chan struct{})
	handler := events.HandlerFunc(func(id string, _ events.Event) {
		if id == "e1" {
			close(entered)
			<-release
		}
		mu.Lock()
		got = append(got, id)
		mu.Unlock()
	})

	added := make(chan struct{})
	go func() {
		router.AddHandler(handler)
		close(added)
	}()
	<-entered

	dispatched := make(chan struct{})
	go func() {
		router.Dispatch("e3", "disconnect", events.DisconnectEvent{})
		close(dispatched)
	}()

	select {
	case <-dispatched:
		t.Error("expected the live event to wait for the replay")
	case <-time.After(50 * time.Millisecond):
	}
	mu.Lock()
	if len(got) != 0 {
		t.Errorf("expected nothing delivered while e1 is handled, got %v", got)
	}
	mu.Unlock()

	close(release)
	<-added
	<-dispatched

	mu.Lock()
	defer mu.Unlock()
	if strings.Join(got, ",") != "e1,e2,e3" {
		t.Errorf("expected e1,e2,e3, got %v", got)
	}
}

func TestRouterQueueIsBounded(t *testing.T) {
	t.Parallel()
	router := events.NewRouter()
	for range events.MaxQueuedEvents + 10 {
		router.Dispatch("id", "disconnect", events.DisconnectEvent{})
	}
	if router.QueuedCount() != events.MaxQueuedEvents {
		t.Errorf("expected %d queued events, got %d", events.MaxQueuedEvents, router.QueuedCount())
	}
}

func TestRouterRemoveHandler(t *testing.T) {
	t.Parallel()
	router := events.NewRouter()
	calls := 0
	keep := router.AddHandler(events.HandlerFunc(func(string, events.Event) {}))
	id := router.AddHandler(events.HandlerFunc(func(string, events.Event) {
		calls++
	}))
	router.RemoveHandler(id)
	router.Dispatch("1", "disconnect", events.DisconnectEvent{})
	if calls != 0 {
		t.Errorf("expected removed handler not to be called, got %d calls", calls)
	}
	router.RemoveHandler(keep)
}

func TestRouterSurvivesPanickingHandler(t *testing.T) {
	t.Parallel()
	router := events.NewRouter()
	router.AddHandler(events.HandlerFunc(func(string, events.Event) {
		panic("boom")
	}))
	delivered := false
	router.AddHandler(events.HandlerFunc(func(string, events.Event) {
		delivered = true
	}))
	router.Dispatch("1", "disconnect", events.DisconnectEvent{})
	if !delivered {
		t.Error("expected second handler to receive the event")
	}
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func TestNATSSinkPublishesEnvelope(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{}
	sink := events.NewNATSSink(pub, "")
	sink.HandleEvent("abc", events.DisconnectEvent{SessionID: "s1"})

	if len(pub.subjects) != 1 || pub.subjects[0] != "walletkit.events.disconnect" {
		t.Fatalf("unexpected subjects %v", pub.subjects)
	}
	var env struct {
		ID    string          `json:"id"`
		Type  string          `json:"type"`
		Event json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal(pub.payloads[0], &env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.ID != "abc" || env.Type != "disconnect" || !strings.Contains(string(env.Event), `"sessionId":"s1"`) {
		t.Errorf("unexpected envelope %s", pub.payloads[0])
	}
}
