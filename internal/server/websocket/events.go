package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/USA-RedDragon/walletkit-bridge/internal/events"
	"github.com/USA-RedDragon/walletkit-bridge/internal/websocket"
	gorillaWebsocket "github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
)

// EventsWebsocket streams every dispatched WalletKit event to the connected
// clients. It is an events.Handler.
type EventsWebsocket struct {
	clients *xsync.MapOf[websocket.Writer, struct{}]
}

func CreateEventsWebsocket() *EventsWebsocket {
	return &EventsWebsocket{
		clients: xsync.NewMapOf[websocket.Writer, struct{}](),
	}
}

func (c *EventsWebsocket) Connected() int {
	return c.clients.Size()
}

func (c *EventsWebsocket) HandleEvent(id string, event events.Event) {
	if c.clients.Size() == 0 {
		return
	}
	eventDataJSON, err := json.Marshal(events.NewEnvelope(id, event))
	if err != nil {
		slog.Warn("Error marshalling event data", "type", event.GetType(), "error", err)
		return
	}
	c.clients.Range(func(w websocket.Writer, _ struct{}) bool {
		w.WriteMessage(websocket.Message{
			Type: gorillaWebsocket.TextMessage,
			Data: eventDataJSON,
		})
		return true
	})
}

func (c *EventsWebsocket) OnMessage(_ context.Context, _ *http.Request, _ websocket.Writer, msg []byte, msgType int) {
	slog.Debug("Ignoring message on events websocket", "message", string(msg), "type", msgType)
}

func (c *EventsWebsocket) OnConnect(_ context.Context, r *http.Request, w websocket.Writer) {
	c.clients.Store(w, struct{}{})
	slog.Info("Events websocket connected", "remote", r.RemoteAddr)
}

func (c *EventsWebsocket) OnDisconnect(_ context.Context, r *http.Request, w websocket.Writer) {
	c.clients.Delete(w)
	slog.Info("Events websocket disconnected", "remote", r.RemoteAddr)
}
