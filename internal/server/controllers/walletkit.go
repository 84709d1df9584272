package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/USA-RedDragon/walletkit-bridge/internal/bridge"
	"github.com/USA-RedDragon/walletkit-bridge/internal/engine"
	"github.com/USA-RedDragon/walletkit-bridge/internal/server/apimodels"
	"github.com/USA-RedDragon/walletkit-bridge/internal/sessions"
	"github.com/gin-gonic/gin"
	"github.com/go-errors/errors"
	"github.com/mattn/go-nulltype"
)

const CallTimeout = 30 * time.Second

var ErrReservedMethod = errors.New("method is managed by the bridge")

// Invoke makes sure WalletKit is initialized and calls method with the raw
// JSON params in body. An empty body calls without params.
func Invoke(ctx context.Context, session *bridge.Session, method string, body []byte) (json.RawMessage, error) {
	switch method {
	case bridge.MethodInit, bridge.MethodSetEventsListeners, bridge.MethodRemoveEventListeners:
		return nil, ErrReservedMethod
	}
	var params any
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 {
		if !json.Valid(trimmed) {
			return nil, bridge.ErrInvalidParams
		}
		params = json.RawMessage(trimmed)
	}

	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()
	if err := session.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	return session.Call(ctx, method, params)
}

// ErrorResponse maps a call failure to a status code and a message safe to
// hand back to the caller.
func ErrorResponse(err error) (int, string) {
	var bridgeErr *bridge.BridgeError
	switch {
	case errors.As(err, &bridgeErr):
		return http.StatusUnprocessableEntity, bridgeErr.Message
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Timed out waiting for WalletKit"
	case errors.Is(err, bridge.ErrInvalidParams), errors.Is(err, ErrReservedMethod):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, bridge.ErrBridgeClosed),
		errors.Is(err, bridge.ErrNotConfigured),
		errors.Is(err, engine.ErrEngineStopped),
		errors.Is(err, engine.ErrNotConnected):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, "Try again later"
	}
}

func POSTCall(c *gin.Context) {
	method := c.Param("method")

	session, ok := c.MustGet("session").(*bridge.Session)
	if !ok {
		slog.Error("Failed to get session from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		slog.Error("Failed to read call body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := Invoke(c.Request.Context(), session, method, body)
	if err != nil {
		status, msg := ErrorResponse(err)
		if status >= http.StatusInternalServerError {
			slog.Error("WalletKit call failed", "method", method, "error", err)
		} else {
			slog.Warn("WalletKit call rejected", "method", method, "error", err)
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", result)
}

func GETState(c *gin.Context) {
	session, ok := c.MustGet("session").(*bridge.Session)
	if !ok {
		slog.Error("Failed to get session from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	registry, ok := c.MustGet("registry").(*sessions.Registry)
	if !ok {
		slog.Error("Failed to get registry from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	state := session.State()
	resp := apimodels.GETStateResponse{
		Initialized:              state.Initialized,
		Ready:                    session.IsReady(),
		EventListenersSetUp:      session.AreEventListenersSetUp(),
		PersistentStorageEnabled: state.PersistentStorageEnabled,
		Network:                  state.Network,
		APIBaseURL:               state.APIBaseURL,
		TonAPIKeySet:             state.TonAPIKey.Valid(),
		PendingCalls:             session.PendingCalls(),
		BrowserSessions:          registry.Len(),
	}
	if remote, ok := c.Get("remote"); ok {
		if remote, ok := remote.(*engine.Remote); ok {
			resp.EngineAttached = nulltype.NullBoolOf(remote.Connected())
			resp.EngineAttachments = nulltype.NullInt64Of(remote.Attachments())
		}
	}

	c.JSON(http.StatusOK, resp)
}

func GETBrowserSessions(c *gin.Context) {
	registry, ok := c.MustGet("registry").(*sessions.Registry)
	if !ok {
		slog.Error("Failed to get registry from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	c.JSON(http.StatusOK, apimodels.GETBrowserSessionsResponse{Sessions: registry.IDs()})
}
