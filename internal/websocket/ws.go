package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/USA-RedDragon/walletkit-bridge/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const bufferSize = 1024

type Websocket interface {
	OnMessage(ctx context.Context, r *http.Request, w Writer, msg []byte, t int)
	OnConnect(ctx context.Context, r *http.Request, w Writer)
	OnDisconnect(ctx context.Context, r *http.Request, w Writer)
}

type Message struct {
	Type int
	Data []byte
}

type Writer interface {
	WriteMessage(msg Message) bool
	Error(reason string)
}

type wsWriter struct {
	writer chan Message
	error  chan string
	done   chan struct{}
}

func newWriter() *wsWriter {
	return &wsWriter{
		writer: make(chan Message, bufferSize),
		error:  make(chan string, 1),
		done:   make(chan struct{}),
	}
}

// WriteMessage queues a frame. It reports false once the connection is gone.
func (w *wsWriter) WriteMessage(msg Message) bool {
	select {
	case <-w.done:
		return false
	case w.writer <- msg:
		return true
	}
}

func (w *wsWriter) Error(reason string) {
	select {
	case w.error <- reason:
	default:
	}
}

type WSHandler struct {
	wsUpgrader websocket.Upgrader
	handler    Websocket
}

func CreateHandler(ws Websocket, config *config.Config) func(*gin.Context) {
	handler := &WSHandler{
		wsUpgrader: websocket.Upgrader{
			ReadBufferSize:  bufferSize,
			WriteBufferSize: bufferSize,
			Error: func(_ http.ResponseWriter, _ *http.Request, status int, reason error) {
				slog.Warn("Websocket upgrade failed", "status", status, "error", reason)
			},
			CheckOrigin: func(r *http.Request) bool {
				return checkOrigin(r.Header.Get("Origin"), config.HTTP.CORSHosts)
			},
			EnableCompression: true,
		},
		handler: ws,
	}

	return func(c *gin.Context) {
		conn, err := handler.wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("Failed to set websocket upgrade", "error", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		writer := newWriter()
		defer func() {
			close(writer.done)
			handler.handler.OnDisconnect(c.Request.Context(), c.Request, writer)
			_ = conn.Close()
		}()

		handler.handle(c.Request.Context(), c.Request, conn, writer)
	}
}

func checkOrigin(origin string, corsHosts []string) bool {
	if origin == "" || len(corsHosts) == 0 {
		return true
	}
	origin = strings.ToLower(origin)
	for _, host := range corsHosts {
		host = strings.ToLower(host)
		if strings.HasSuffix(host, ":443") && strings.HasPrefix(origin, "https://") {
			host = strings.TrimSuffix(host, ":443")
		}
		if strings.HasSuffix(host, ":80") && strings.HasPrefix(origin, "http://") {
			host = strings.TrimSuffix(host, ":80")
		}
		if strings.Contains(origin, host) {
			return true
		}
	}
	return false
}

func (h *WSHandler) handle(ctx context.Context, r *http.Request, conn *websocket.Conn, writer *wsWriter) {
	h.handler.OnConnect(ctx, r, writer)

	go func() {
		for {
			t, msg, err := conn.ReadMessage()
			if err != nil {
				writer.Error("read failed")
				return
			}
			switch {
			case t == websocket.PingMessage:
				writer.WriteMessage(Message{
					Type: websocket.PongMessage,
				})
			case strings.EqualFold(string(msg), "ping"):
				writer.WriteMessage(Message{
					Type: websocket.TextMessage,
					Data: []byte("PONG"),
				})
			default:
				h.handler.OnMessage(ctx, r, writer, msg, t)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-writer.error:
			slog.Debug("Websocket closing", "reason", reason)
			return
		case msg := <-writer.writer:
			err := conn.WriteMessage(msg.Type, msg.Data)
			if err != nil {
				return
			}
		}
	}
}
