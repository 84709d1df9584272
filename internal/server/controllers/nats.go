package controllers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/USA-RedDragon/walletkit-bridge/internal/bridge"
	"github.com/USA-RedDragon/walletkit-bridge/internal/server/apimodels"
	"github.com/nats-io/nats.go"
)

const NATSQueueGroup = "walletkit-bridge"

// SubscribeCalls serves <prefix>.<method> requests with the same semantics
// as POST /v1/call/:method. The request payload is the params JSON.
func SubscribeCalls(ctx context.Context, nc *nats.Conn, prefix string, session *bridge.Session) (*nats.Subscription, error) {
	return nc.QueueSubscribe(prefix+".*", NATSQueueGroup, func(msg *nats.Msg) {
		method := strings.TrimPrefix(msg.Subject, prefix+".")
		// Calls block until JavaScript answers, keep the subscription moving.
		go func() {
			data, err := json.Marshal(CallResponseFor(ctx, session, method, msg.Data))
			if err != nil {
				slog.Warn("Error marshalling NATS call response", "method", method, "error", err)
				data = []byte{}
			}
			if err := msg.Respond(data); err != nil {
				slog.Warn("Error responding to NATS", "method", method, "error", err)
			}
		}()
	})
}

func CallResponseFor(ctx context.Context, session *bridge.Session, method string, params []byte) apimodels.CallResponse {
	result, err := Invoke(ctx, session, method, params)
	if err != nil {
		status, msg := ErrorResponse(err)
		slog.Warn("WalletKit call over NATS failed", "method", method, "status", status, "error", err)
		return apimodels.CallResponse{Error: msg, Status: status}
	}
	return apimodels.CallResponse{Result: result, Status: http.StatusOK}
}
