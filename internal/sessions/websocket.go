package sessions

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path"

	"github.com/USA-RedDragon/walletkit-bridge/internal/websocket"
	gorillaWebsocket "github.com/gorilla/websocket"
)

// RequestHandler answers a message a browser tab sent to the wallet.
type RequestHandler func(ctx context.Context, sessionID string, request json.RawMessage) (json.RawMessage, error)

type writerInjector struct {
	w websocket.Writer
}

func (i *writerInjector) InjectEvent(event json.RawMessage) error {
	if !i.w.WriteMessage(websocket.Message{Type: gorillaWebsocket.TextMessage, Data: event}) {
		return ErrSessionGone
	}
	return nil
}

// SessionsWebsocket registers every connected browser tab, keyed by the last
// path segment of its URL, as an injector.
type SessionsWebsocket struct {
	registry  *Registry
	onRequest RequestHandler
}

func CreateSessionsWebsocket(registry *Registry, onRequest RequestHandler) *SessionsWebsocket {
	return &SessionsWebsocket{
		registry:  registry,
		onRequest: onRequest,
	}
}

func sessionIDFromRequest(r *http.Request) string {
	return path.Base(r.URL.Path)
}

func (s *SessionsWebsocket) OnConnect(_ context.Context, r *http.Request, w websocket.Writer) {
	sessionID := sessionIDFromRequest(r)
	s.registry.Register(sessionID, &writerInjector{w: w})
	slog.Info("Browser session connected", "session", sessionID)
}

func (s *SessionsWebsocket) OnMessage(ctx context.Context, r *http.Request, w websocket.Writer, msg []byte, _ int) {
	sessionID := sessionIDFromRequest(r)
	if s.onRequest == nil {
		slog.Debug("Ignoring message from browser session", "session", sessionID)
		return
	}
	if !json.Valid(msg) {
		slog.Warn("Ignoring malformed message from browser session", "session", sessionID)
		return
	}
	go func() {
		resp, err := s.onRequest(ctx, sessionID, msg)
		if err != nil {
			slog.Warn("Browser request failed", "session", sessionID, "error", err)
			resp, _ = json.Marshal(map[string]string{"error": err.Error()})
		}
		if len(resp) == 0 {
			return
		}
		w.WriteMessage(websocket.Message{Type: gorillaWebsocket.TextMessage, Data: resp})
	}()
}

func (s *SessionsWebsocket) OnDisconnect(_ context.Context, r *http.Request, w websocket.Writer) {
	sessionID := sessionIDFromRequest(r)
	if injector, ok := s.registry.InjectorForSession(sessionID); ok {
		if wi, ok := injector.(*writerInjector); ok && wi.w == w {
			s.registry.UnregisterIf(sessionID, injector)
		}
	}
	slog.Info("Browser session disconnected", "session", sessionID)
}
