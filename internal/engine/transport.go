package engine

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/USA-RedDragon/walletkit-bridge/internal/latch"
	"github.com/go-errors/errors"
)

var (
	ErrEngineStopped = errors.New("JavaScript engine is not running")
	ErrNotConnected  = errors.New("no WebView is attached to the engine")
)

// MessageHandler receives every serialized JSON message the JavaScript side posts.
type MessageHandler func(payload []byte)

// Transport owns a JavaScript execution environment.
type Transport interface {
	// ExecuteJavaScript injects a script without waiting for its result.
	ExecuteJavaScript(script string) error
	// AwaitReady blocks until the environment is initialized, the bridge script
	// is loaded and the JavaScript runtime reported ready.
	AwaitReady(ctx context.Context) error
	MarkBridgeLoaded()
	MarkJSReady()
	SetMessageHandler(handler MessageHandler)
	Close() error
}

// Storage is the key/value store exposed to the JavaScript side.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

type Latches struct {
	Initialized  *latch.Latch
	BridgeLoaded *latch.Latch
	JSReady      *latch.Latch
}

func NewLatches() *Latches {
	return &Latches{
		Initialized:  latch.New(),
		BridgeLoaded: latch.New(),
		JSReady:      latch.New(),
	}
}

func (l *Latches) AwaitReady(ctx context.Context) error {
	for _, lt := range []*latch.Latch{l.Initialized, l.BridgeLoaded, l.JSReady} {
		if err := lt.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Fail fails every latch that has not completed yet.
func (l *Latches) Fail(err error) {
	l.Initialized.Fail(err)
	l.BridgeLoaded.Fail(err)
	l.JSReady.Fail(err)
}

// host carries the state shared by every Transport implementation.
type host struct {
	*Latches
	handler atomic.Pointer[MessageHandler]
}

func newHost() host {
	return host{Latches: NewLatches()}
}

func (h *host) SetMessageHandler(handler MessageHandler) {
	h.handler.Store(&handler)
}

func (h *host) MarkBridgeLoaded() {
	h.BridgeLoaded.Complete()
}

func (h *host) MarkJSReady() {
	h.JSReady.Complete()
}

func (h *host) deliver(payload []byte) {
	handler := h.handler.Load()
	if handler == nil || *handler == nil {
		slog.Warn("Dropping message from JavaScript, no handler installed", "size", len(payload))
		return
	}
	(*handler)(payload)
}
