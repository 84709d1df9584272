package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/USA-RedDragon/walletkit-bridge/internal/engine"
	"github.com/USA-RedDragon/walletkit-bridge/internal/events"
	"github.com/USA-RedDragon/walletkit-bridge/internal/metrics"
	"github.com/USA-RedDragon/walletkit-bridge/internal/sessions"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

type EventParser interface {
	Parse(eventType string, data json.RawMessage, raw json.RawMessage) (events.Event, error)
}

type EventRouter interface {
	Dispatch(id string, eventType string, event events.Event)
}

type SessionInjectors interface {
	InjectorForSession(sessionID string) (sessions.Injector, bool)
	Broadcast(event json.RawMessage) int
}

// ReadyInfo is what a ready message reports about the JavaScript side.
type ReadyInfo struct {
	Network    string
	APIBaseURL string
}

type DispatcherOptions struct {
	Parser   EventParser
	Router   EventRouter
	Sessions SessionInjectors
	Metrics  *metrics.Metrics
	OnReady  func(ReadyInfo)
}

// Dispatcher routes every message the JavaScript side posts and tracks
// whether its event listeners are registered.
type Dispatcher struct {
	rpc       *RPCClient
	init      *InitManager
	transport engine.Transport
	mainLoop  *MainLoop
	opts      DispatcherOptions

	listenersSetUp atomic.Bool
	listenersLock  *semaphore.Weighted

	ctx        context.Context
	cancel     context.CancelFunc
	background sync.WaitGroup
}

func NewDispatcher(rpc *RPCClient, initManager *InitManager, transport engine.Transport, mainLoop *MainLoop, opts DispatcherOptions) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		rpc:           rpc,
		init:          initManager,
		transport:     transport,
		mainLoop:      mainLoop,
		opts:          opts,
		listenersLock: semaphore.NewWeighted(1),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// DispatchMessage classifies one serialized message. Malformed messages are
// logged and dropped.
func (d *Dispatcher) DispatchMessage(payload []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		d.drop("invalid_json", "Dropping unparseable message from JavaScript", "error", err)
		return
	}
	d.opts.Metrics.IncrementInbound(msg.Kind)

	switch msg.Kind {
	case KindReady:
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(payload, &fields); err != nil {
			d.drop("invalid_ready", "Dropping malformed ready message", "error", err)
			return
		}
		d.handleReady(fields)
	case KindEvent:
		if isAbsent(msg.Event) {
			d.drop("missing_event", "Dropping event message without event")
			return
		}
		d.handleEvent(msg.Event)
	case KindResponse:
		if msg.ID == "" {
			d.drop("missing_id", "Dropping response without id")
			return
		}
		d.rpc.HandleResponse(msg.ID, Response{Result: msg.Result, Error: msg.Error})
	case KindJSBridgeEvent:
		d.handleJSBridgeEvent(msg.SessionID, msg.Event)
	default:
		d.drop("unknown_kind", "Dropping message of unknown kind", "kind", msg.Kind)
	}
}

func (d *Dispatcher) drop(reason, msg string, args ...any) {
	d.opts.Metrics.IncrementDropped(reason)
	slog.Warn(msg, args...)
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func (d *Dispatcher) handleReady(fields map[string]json.RawMessage) {
	info := ReadyInfo{
		Network:    stringField(fields, "network"),
		APIBaseURL: stringField(fields, "tonApiUrl"),
	}
	if info.APIBaseURL == "" {
		info.APIBaseURL = stringField(fields, "apiBaseUrl")
	}
	d.init.UpdateNetwork(info.Network)
	d.init.UpdateAPIBaseURL(info.APIBaseURL)
	if d.opts.OnReady != nil {
		d.opts.OnReady(info)
	}

	d.transport.MarkBridgeLoaded()
	d.transport.MarkJSReady()

	// Must be read before the latch is touched.
	wasAlreadyReady := d.rpc.IsReady()
	if !wasAlreadyReady {
		d.rpc.MarkReady()
	}
	d.opts.Metrics.IncrementReadyEvents()
	slog.Info("WalletKit ready", "network", info.Network, "api_base_url", info.APIBaseURL, "repeat", wasAlreadyReady)

	// A repeated ready after listeners were registered means the JavaScript
	// context was recreated and lost them.
	if wasAlreadyReady && d.listenersSetUp.CompareAndSwap(true, false) {
		slog.Warn("JavaScript context was recreated, re-registering event listeners")
		d.opts.Metrics.IncrementRecoveries()
		d.background.Add(1)
		go func() {
			defer d.background.Done()
			if err := d.EnsureEventListenersSetUp(d.ctx); err != nil {
				slog.Error("Failed to re-register event listeners", "error", err)
			}
		}()
	}

	delete(fields, "kind")
	data, err := json.Marshal(fields)
	if err != nil {
		slog.Error("Failed to marshal ready event", "error", err)
		return
	}
	raw, err := json.Marshal(eventEnvelope{Type: string(events.EventTypeReady), Data: data})
	if err != nil {
		slog.Error("Failed to marshal ready event", "error", err)
		return
	}
	d.handleEvent(raw)
}

func (d *Dispatcher) handleEvent(raw json.RawMessage) {
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		d.drop("invalid_event", "Dropping malformed event", "error", err)
		return
	}
	if env.Type == "" {
		d.drop("missing_type", "Dropping event without type")
		return
	}
	if isAbsent(env.Data) {
		env.Data = emptyObject
	}
	if env.ID == "" {
		env.ID = uuid.NewString()
	}

	if d.opts.Parser == nil {
		d.drop("no_parser", "Dropping event, no parser configured", "type", env.Type)
		return
	}
	event, err := d.opts.Parser.Parse(env.Type, env.Data, raw)
	if err != nil {
		d.drop("parse_failed", "Dropping event that failed to parse", "type", env.Type, "error", err)
		return
	}
	if event == nil {
		d.drop("unsupported_type", "Dropping event of unsupported type", "type", env.Type)
		return
	}

	id, eventType := env.ID, env.Type
	posted := d.mainLoop.Post(func() {
		d.opts.Metrics.IncrementEvents(eventType)
		if d.opts.Router != nil {
			d.opts.Router.Dispatch(id, eventType, event)
		}
	})
	if !posted {
		d.drop("closed", "Dropping event, main loop is closed", "type", eventType)
	}
}

func (d *Dispatcher) handleJSBridgeEvent(sessionID string, event json.RawMessage) {
	if isAbsent(event) {
		d.drop("missing_event", "Dropping bridge event without event", "session", sessionID)
		return
	}
	if d.opts.Sessions == nil {
		d.drop("no_sessions", "Dropping bridge event, no browser sessions", "session", sessionID)
		return
	}
	if sessionID == "" {
		delivered := d.opts.Sessions.Broadcast(event)
		slog.Debug("Broadcast bridge event", "sessions", delivered)
		return
	}
	injector, ok := d.opts.Sessions.InjectorForSession(sessionID)
	if !ok {
		// The tab may have closed after JavaScript emitted the event.
		d.opts.Metrics.IncrementDropped("unknown_session")
		slog.Debug("No browser session for bridge event", "session", sessionID)
		return
	}
	if err := injector.InjectEvent(event); err != nil {
		slog.Warn("Failed to inject bridge event", "session", sessionID, "error", err)
	}
}

func (d *Dispatcher) AreEventListenersSetUp() bool {
	return d.listenersSetUp.Load()
}

// EnsureEventListenersSetUp registers the JavaScript event listeners once.
func (d *Dispatcher) EnsureEventListenersSetUp(ctx context.Context) error {
	if d.listenersSetUp.Load() {
		return nil
	}
	if err := d.listenersLock.Acquire(ctx, 1); err != nil {
		return err
	}
	defer d.listenersLock.Release(1)
	if d.listenersSetUp.Load() {
		return nil
	}

	if err := d.init.EnsureInitialized(ctx, nil); err != nil {
		return err
	}
	if _, err := d.rpc.Call(ctx, MethodSetEventsListeners, nil); err != nil {
		return fmt.Errorf("failed to set event listeners: %w", err)
	}
	d.listenersSetUp.Store(true)
	slog.Debug("Event listeners registered")
	return nil
}

// RemoveEventListenersIfNeeded unregisters the JavaScript event listeners.
// Failures are only logged.
func (d *Dispatcher) RemoveEventListenersIfNeeded(ctx context.Context) {
	if !d.listenersSetUp.Load() {
		return
	}
	if err := d.listenersLock.Acquire(ctx, 1); err != nil {
		slog.Warn("Failed to remove event listeners", "error", err)
		return
	}
	defer d.listenersLock.Release(1)
	if !d.listenersSetUp.Load() {
		return
	}

	if _, err := d.rpc.Call(ctx, MethodRemoveEventListeners, nil); err != nil {
		slog.Warn("Failed to remove event listeners", "error", err)
	}
	d.listenersSetUp.Store(false)
}

// Close stops background recovery work.
func (d *Dispatcher) Close() {
	d.cancel()
	d.background.Wait()
}
