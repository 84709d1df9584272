package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/USA-RedDragon/walletkit-bridge/internal/engine"
	"github.com/USA-RedDragon/walletkit-bridge/internal/latch"
	"github.com/USA-RedDragon/walletkit-bridge/internal/metrics"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type callResult struct {
	result json.RawMessage
	err    error
}

type pendingCall struct {
	method string
	result chan callResult
}

// resolve never blocks: the slot is buffered and a call is only ever resolved
// by whoever removed it from the pending map.
func (p *pendingCall) resolve(res callResult) {
	select {
	case p.result <- res:
	default:
	}
}

// RPCClient correlates calls into the JavaScript runtime with the responses
// it posts back.
type RPCClient struct {
	transport engine.Transport
	ready     *latch.Latch
	pending   *xsync.MapOf[string, *pendingCall]
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

func NewRPCClient(transport engine.Transport, metrics *metrics.Metrics) *RPCClient {
	return &RPCClient{
		transport: transport,
		ready:     latch.New(),
		pending:   xsync.NewMapOf[string, *pendingCall](),
		metrics:   metrics,
		tracer:    otel.Tracer("github.com/USA-RedDragon/walletkit-bridge/internal/bridge"),
	}
}

// Call invokes method in the JavaScript runtime and blocks until the response
// arrives, FailAll is called or ctx is done. Every call except init first
// waits for the runtime to report ready.
func (c *RPCClient) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "walletkit."+method, trace.WithAttributes(
		attribute.String("walletkit.method", method),
	))
	defer span.End()
	start := time.Now()

	result, err := c.call(ctx, span, method, params)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	c.metrics.ObserveCall(method, outcome, time.Since(start))
	return result, err
}

func (c *RPCClient) call(ctx context.Context, span trace.Span, method string, params any) (json.RawMessage, error) {
	if err := c.transport.AwaitReady(ctx); err != nil {
		return nil, fmt.Errorf("engine not ready for %s: %w", method, err)
	}
	if method != MethodInit {
		if err := c.ready.Wait(ctx); err != nil {
			return nil, fmt.Errorf("bridge not ready for %s: %w", method, err)
		}
	}

	payload, err := encodeParams(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params for %s: %w", method, err)
	}

	call := &pendingCall{
		method: method,
		result: make(chan callResult, 1),
	}
	callID := c.register(call)
	span.SetAttributes(attribute.String("walletkit.call_id", callID))

	script, err := callScript(callID, method, payload)
	if err != nil {
		c.forget(callID)
		return nil, err
	}
	if err := c.transport.ExecuteJavaScript(script); err != nil {
		c.forget(callID)
		return nil, fmt.Errorf("failed to inject %s: %w", method, err)
	}

	select {
	case res := <-call.result:
		return res.result, res.err
	case <-ctx.Done():
		c.forget(callID)
		// A response may have landed together with the cancellation.
		select {
		case res := <-call.result:
			return res.result, res.err
		default:
		}
		return nil, ctx.Err()
	}
}

// register stores the pending call under a fresh id before anything is sent
// to JavaScript, so even an immediate response finds it.
func (c *RPCClient) register(call *pendingCall) string {
	for {
		callID := uuid.NewString()
		if _, loaded := c.pending.LoadOrStore(callID, call); !loaded {
			c.metrics.SetPendingCalls(c.pending.Size())
			return callID
		}
	}
}

func (c *RPCClient) forget(callID string) {
	c.pending.Delete(callID)
	c.metrics.SetPendingCalls(c.pending.Size())
}

// HandleResponse resolves the call with the given id. Responses for unknown or
// already resolved ids are ignored.
func (c *RPCClient) HandleResponse(id string, response Response) {
	call, loaded := c.pending.LoadAndDelete(id)
	if !loaded {
		slog.Debug("Ignoring response for unknown call", "id", id)
		return
	}
	c.metrics.SetPendingCalls(c.pending.Size())

	if msg, failed := errorMessage(response.Error); failed {
		call.resolve(callResult{err: &BridgeError{Method: call.method, CallID: id, Message: msg}})
		return
	}
	result, err := normalizeResult(response.Result)
	if err != nil {
		call.resolve(callResult{err: fmt.Errorf("malformed result for %s: %w", call.method, err)})
		return
	}
	call.resolve(callResult{result: result})
}

// FailAll fails every pending call with err, and the ready latch if it has not
// completed, so nobody waits on a dead transport.
func (c *RPCClient) FailAll(err error) {
	failed := 0
	c.pending.Range(func(id string, _ *pendingCall) bool {
		if call, loaded := c.pending.LoadAndDelete(id); loaded {
			call.resolve(callResult{err: err})
			failed++
		}
		return true
	})
	c.ready.Fail(err)
	c.metrics.SetPendingCalls(c.pending.Size())
	if failed > 0 {
		slog.Warn("Failed all pending bridge calls", "count", failed, "error", err)
	}
}

func (c *RPCClient) MarkReady() {
	c.ready.Complete()
}

func (c *RPCClient) IsReady() bool {
	return c.ready.IsCompleted()
}

func (c *RPCClient) PendingCount() int {
	return c.pending.Size()
}

func encodeParams(params any) ([]byte, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if isAbsent(p) {
			return nil, nil
		}
		if !json.Valid(p) {
			return nil, ErrInvalidParams
		}
		return p, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	if isAbsent(data) {
		return nil, nil
	}
	return data, nil
}

// callScript builds the injected expression. Params travel base64 encoded so
// nothing in them can break out of the string literal.
func callScript(callID, method string, payload []byte) (string, error) {
	idLiteral, err := json.Marshal(callID)
	if err != nil {
		return "", err
	}
	methodLiteral, err := json.Marshal(method)
	if err != nil {
		return "", err
	}
	if payload == nil {
		return fmt.Sprintf("walletkitCall(%s, %s, null)", idLiteral, methodLiteral), nil
	}
	encoded := base64.StdEncoding.EncodeToString(payload)
	return fmt.Sprintf("walletkitCall(%s, %s, atob(\"%s\"))", idLiteral, methodLiteral, encoded), nil
}
