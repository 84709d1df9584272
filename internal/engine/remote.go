package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/USA-RedDragon/walletkit-bridge/internal/metrics"
	"github.com/USA-RedDragon/walletkit-bridge/internal/websocket"
	gorillaWebsocket "github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
)

type executeFrame struct {
	Kind   string `json:"kind"`
	Script string `json:"script"`
}

// Remote is a Transport backed by a WebView attached over a websocket. Only the
// most recently attached WebView receives scripts.
type Remote struct {
	host

	mu          sync.Mutex
	peer        websocket.Writer
	attachments *xsync.Counter
	closed      bool
	metrics     *metrics.Metrics
}

func NewRemote(metrics *metrics.Metrics) *Remote {
	return &Remote{
		host:        newHost(),
		attachments: xsync.NewCounter(),
		metrics:     metrics,
	}
}

// Attachments is the number of WebViews that attached since start.
func (r *Remote) Attachments() int64 {
	return r.attachments.Value()
}

func (r *Remote) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peer != nil
}

func (r *Remote) ExecuteJavaScript(script string) error {
	r.mu.Lock()
	peer, closed := r.peer, r.closed
	r.mu.Unlock()
	if closed {
		return ErrEngineStopped
	}
	if peer == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(executeFrame{Kind: "execute", Script: script})
	if err != nil {
		return fmt.Errorf("failed to marshal script frame: %w", err)
	}
	if !peer.WriteMessage(websocket.Message{Type: gorillaWebsocket.TextMessage, Data: data}) {
		return ErrNotConnected
	}
	return nil
}

func (r *Remote) OnConnect(_ context.Context, req *http.Request, w websocket.Writer) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		w.Error("engine closed")
		return
	}
	previous := r.peer
	r.peer = w
	r.mu.Unlock()

	if previous != nil {
		previous.Error("superseded by a new WebView")
	}
	r.attachments.Inc()
	r.metrics.SetEngineAttached(true)
	// The WebView attaches from a page that already evaluated the bridge script.
	r.Initialized.Complete()
	r.BridgeLoaded.Complete()
	r.JSReady.Complete()
	slog.Info("WebView attached", "remote", req.RemoteAddr)
}

func (r *Remote) OnMessage(_ context.Context, _ *http.Request, _ websocket.Writer, msg []byte, t int) {
	if t != gorillaWebsocket.TextMessage {
		slog.Warn("Ignoring non-text frame from WebView", "type", t)
		return
	}
	r.deliver(msg)
}

func (r *Remote) OnDisconnect(_ context.Context, req *http.Request, w websocket.Writer) {
	r.mu.Lock()
	detached := r.peer == w
	if detached {
		r.peer = nil
	}
	r.mu.Unlock()
	if detached {
		r.metrics.SetEngineAttached(false)
	}
	slog.Warn("WebView detached", "remote", req.RemoteAddr)
}

func (r *Remote) Close() error {
	r.mu.Lock()
	peer := r.peer
	r.peer = nil
	r.closed = true
	r.mu.Unlock()
	if peer != nil {
		peer.Error("engine closed")
	}
	r.Latches.Fail(ErrEngineStopped)
	return nil
}
