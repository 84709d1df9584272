package bridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/USA-RedDragon/walletkit-bridge/internal/bridge"
)

type callOutcome struct {
	result json.RawMessage
	err    error
}

type caller interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
}

func goCall(ctx context.Context, rpc caller, method string, params any) <-chan callOutcome {
	out := make(chan callOutcome, 1)
	go func() {
		result, err := rpc.Call(ctx, method, params)
		out <- callOutcome{result: result, err: err}
	}()
	return out
}

func await(t *testing.T, ch <-chan callOutcome) callOutcome {
	t.Helper()
	select {
	case out := <-ch:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for call")
		return callOutcome{}
	}
}

func readyRPC(t *testing.T) (*bridge.RPCClient, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport(t).ready()
	rpc := bridge.NewRPCClient(ft, nil)
	rpc.MarkReady()
	return rpc, ft
}

func TestCallEncodesParams(t *testing.T) {
	t.Parallel()
	rpc, ft := readyRPC(t)

	out := goCall(context.Background(), rpc, "addWallet", map[string]string{"name": "ü \"quoted\" </script>"})
	call := ft.waitForCalls(1)[0]
	if call.Method != "addWallet" {
		t.Errorf("expected addWallet, got %s", call.Method)
	}
	var params map[string]string
	if err := json.Unmarshal(call.Params, &params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params["name"] != "ü \"quoted\" </script>" {
		t.Errorf("params did not survive encoding: %q", params["name"])
	}

	rpc.HandleResponse(call.ID, bridge.Response{Result: json.RawMessage(`{"ok":true}`)})
	res := await(t, out)
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if string(res.result) != `{"ok":true}` {
		t.Errorf("unexpected result %s", res.result)
	}
}

func TestCallWithoutParamsPassesNull(t *testing.T) {
	t.Parallel()
	for _, params := range []any{nil, json.RawMessage(nil), json.RawMessage("null")} {
		rpc, ft := readyRPC(t)
		out := goCall(context.Background(), rpc, "getWallets", params)
		call := ft.waitForCalls(1)[0]
		if call.Params != nil {
			t.Errorf("expected null params for %#v, got %s", params, call.Params)
		}
		rpc.HandleResponse(call.ID, bridge.Response{})
		if res := await(t, out); res.err != nil {
			t.Errorf("unexpected error: %v", res.err)
		}
	}
}

func TestCallRejectsInvalidRawParams(t *testing.T) {
	t.Parallel()
	rpc, ft := readyRPC(t)
	_, err := rpc.Call(context.Background(), "addWallet", json.RawMessage(`{broken`))
	if !errors.Is(err, bridge.ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams, got %v", err)
	}
	if len(ft.injected()) != 0 {
		t.Error("expected nothing to be injected")
	}
}

func TestCallIDsAreUnique(t *testing.T) {
	t.Parallel()
	ft := newFakeTransport(t).ready()
	session := bridge.NewSession(ft)
	defer session.Close()
	session.DispatchMessage([]byte(`{"kind":"ready"}`))
	ft.respondWith(okResponder)

	const calls = 50
	var wg sync.WaitGroup
	for range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := session.Call(context.Background(), "getWallets", nil); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, call := range ft.injected() {
		if seen[call.ID] {
			t.Errorf("duplicate call id %s", call.ID)
		}
		seen[call.ID] = true
	}
	if len(seen) != calls {
		t.Errorf("expected %d ids, got %d", calls, len(seen))
	}
	if session.PendingCalls() != 0 {
		t.Errorf("expected no pending calls, got %d", session.PendingCalls())
	}
}

func TestDuplicateResponsesResolveOnce(t *testing.T) {
	t.Parallel()
	ft := newFakeTransport(t).ready()
	session := bridge.NewSession(ft)
	defer session.Close()
	session.DispatchMessage([]byte(`{"kind":"ready"}`))

	out := goCall(context.Background(), session, "getBalance", nil)
	call := ft.waitForCalls(1)[0]
	for i := range 5 {
		ft.post(responseJSON(call.ID, fmt.Sprintf(`{"n":%d}`, i)))
		time.Sleep(10 * time.Millisecond)
	}
	res := await(t, out)
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if string(res.result) != `{"n":0}` {
		t.Errorf("expected first response to win, got %s", res.result)
	}
}

func TestUnknownResponseIsIgnored(t *testing.T) {
	t.Parallel()
	rpc, _ := readyRPC(t)
	rpc.HandleResponse("no-such-call", bridge.Response{Result: json.RawMessage(`{}`)})
	rpc.HandleResponse("no-such-call", bridge.Response{Error: json.RawMessage(`"boom"`)})
	if rpc.PendingCount() != 0 {
		t.Errorf("expected no pending calls, got %d", rpc.PendingCount())
	}
}

func TestResponsesResolveOutOfOrder(t *testing.T) {
	t.Parallel()
	rpc, ft := readyRPC(t)

	outs := make([]<-chan callOutcome, 3)
	for i := range outs {
		outs[i] = goCall(context.Background(), rpc, fmt.Sprintf("method%d", i), nil)
	}
	calls := ft.waitForCalls(3)
	for i := len(calls) - 1; i >= 0; i-- {
		rpc.HandleResponse(calls[i].ID, bridge.Response{Result: json.RawMessage(`"` + calls[i].Method + `"`)})
	}
	for i, out := range outs {
		res := await(t, out)
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		want := fmt.Sprintf(`{"value":"method%d"}`, i)
		if string(res.result) != want {
			t.Errorf("expected %s, got %s", want, res.result)
		}
	}
}

func TestResultNormalization(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		response func(id string) string
		want     string
	}{
		{"object", func(id string) string { return responseJSON(id, `{"a":1}`) }, `{"a":1}`},
		{"array", func(id string) string { return responseJSON(id, `[1, 2]`) }, `{"items":[1,2]}`},
		{"string", func(id string) string { return responseJSON(id, `"EQabc"`) }, `{"value":"EQabc"}`},
		{"number", func(id string) string { return responseJSON(id, `42`) }, `{"value":42}`},
		{"boolean", func(id string) string { return responseJSON(id, `true`) }, `{"value":true}`},
		{"null", func(id string) string { return responseJSON(id, `null`) }, `{}`},
		{"absent", func(id string) string { return `{"kind":"response","id":"` + id + `"}` }, `{}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ft := newFakeTransport(t).ready()
			session := bridge.NewSession(ft)
			defer session.Close()
			session.DispatchMessage([]byte(`{"kind":"ready"}`))
			ft.respondWith(func(call injectedCall) string { return tc.response(call.ID) })

			result, err := session.Call(context.Background(), "someMethod", nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tc.want {
				t.Errorf("expected %s, got %s", tc.want, result)
			}
		})
	}
}

func TestErrorResponses(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		error string
		want  string
	}{
		{"object", `{"message":"insufficient balance"}`, "insufficient balance"},
		{"object without message", `{"code":500}`, "unknown error"},
		{"string", `"wallet not found"`, "wallet not found"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ft := newFakeTransport(t).ready()
			session := bridge.NewSession(ft)
			defer session.Close()
			session.DispatchMessage([]byte(`{"kind":"ready"}`))
			ft.respondWith(func(call injectedCall) string {
				return `{"kind":"response","id":"` + call.ID + `","result":{"ignored":true},"error":` + tc.error + `}`
			})

			_, err := session.Call(context.Background(), "getBalance", nil)
			var bridgeErr *bridge.BridgeError
			if !errors.As(err, &bridgeErr) {
				t.Fatalf("expected BridgeError, got %v", err)
			}
			if bridgeErr.Message != tc.want {
				t.Errorf("expected %q, got %q", tc.want, bridgeErr.Message)
			}
			if bridgeErr.Method != "getBalance" {
				t.Errorf("expected getBalance, got %s", bridgeErr.Method)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected message in %q", err.Error())
			}
		})
	}
}

func TestFailAllFailsEveryWaiter(t *testing.T) {
	t.Parallel()
	ft := newFakeTransport(t).ready()
	rpc := bridge.NewRPCClient(ft, nil)

	initOut := goCall(context.Background(), rpc, bridge.MethodInit, map[string]string{"network": "-239"})
	otherOut := goCall(context.Background(), rpc, "getWallets", nil)
	ft.waitForCalls(1)

	rpc.FailAll(bridge.ErrBridgeClosed)
	for _, out := range []<-chan callOutcome{initOut, otherOut} {
		if res := await(t, out); !errors.Is(res.err, bridge.ErrBridgeClosed) {
			t.Errorf("expected ErrBridgeClosed, got %v", res.err)
		}
	}
	if rpc.PendingCount() != 0 {
		t.Errorf("expected no pending calls, got %d", rpc.PendingCount())
	}
	if ft.count("getWallets") != 0 {
		t.Error("expected getWallets to never be injected")
	}
	if _, err := rpc.Call(context.Background(), "getWallets", nil); !errors.Is(err, bridge.ErrBridgeClosed) {
		t.Errorf("expected ErrBridgeClosed after FailAll, got %v", err)
	}
}

func TestCallContextCancel(t *testing.T) {
	t.Parallel()
	rpc, ft := readyRPC(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := rpc.Call(ctx, "getWallets", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if rpc.PendingCount() != 0 {
		t.Errorf("expected the call to be forgotten, got %d pending", rpc.PendingCount())
	}
	// A late response for the abandoned call is harmless.
	rpc.HandleResponse(ft.injected()[0].ID, bridge.Response{})
}

func TestResolvedCallSurvivesCancellation(t *testing.T) {
	t.Parallel()
	rpc, ft := readyRPC(t)
	ft.SetMessageHandler(func([]byte) {})

	// The response and the cancellation are both ready before Call selects.
	var cancel context.CancelFunc
	ft.respondWith(func(call injectedCall) string {
		rpc.HandleResponse(call.ID, bridge.Response{Result: json.RawMessage(`{"ok":true}`)})
		cancel()
		return ""
	})

	for range 50 {
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		result, err := rpc.Call(ctx, "getWallets", nil)
		if err != nil {
			t.Fatalf("expected the delivered result, got %v", err)
		}
		if string(result) != `{"ok":true}` {
			t.Errorf("unexpected result %s", result)
		}
		cancel()
	}
	if rpc.PendingCount() != 0 {
		t.Errorf("expected no pending calls, got %d", rpc.PendingCount())
	}
}

func TestCallInjectionFailure(t *testing.T) {
	t.Parallel()
	rpc, ft := readyRPC(t)
	ft.execErr = errors.New("webview gone")

	_, err := rpc.Call(context.Background(), "getWallets", nil)
	if err == nil || !strings.Contains(err.Error(), "webview gone") {
		t.Errorf("expected injection error, got %v", err)
	}
	if rpc.PendingCount() != 0 {
		t.Errorf("expected no pending calls, got %d", rpc.PendingCount())
	}
}

func TestCallWaitsForEngine(t *testing.T) {
	t.Parallel()
	ft := newFakeTransport(t)
	rpc := bridge.NewRPCClient(ft, nil)
	rpc.MarkReady()

	out := goCall(context.Background(), rpc, "getWallets", nil)
	time.Sleep(20 * time.Millisecond)
	if len(ft.injected()) != 0 {
		t.Fatal("expected no injection before the engine is ready")
	}
	ft.ready()
	call := ft.waitForCalls(1)[0]
	rpc.HandleResponse(call.ID, bridge.Response{Result: json.RawMessage(`[]`)})
	if res := await(t, out); string(res.result) != `{"items":[]}` {
		t.Errorf("unexpected result %s (err %v)", res.result, res.err)
	}
}
