// Package walletkit exposes typed operations over a bridge session. Every
// operation makes sure WalletKit is initialized before issuing its call.
package walletkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Bridge is satisfied by *bridge.Session.
type Bridge interface {
	EnsureInitialized(ctx context.Context) error
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
}

func invoke(ctx context.Context, b Bridge, method string, params any) (json.RawMessage, error) {
	if err := b.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	return b.Call(ctx, method, params)
}

// invokeObject decodes a result that JavaScript returned as an object.
func invokeObject[T any](ctx context.Context, b Bridge, method string, params any) (T, error) {
	var out T
	raw, err := invoke(ctx, b, method, params)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return out, nil
}

// invokeItems decodes a result that JavaScript returned as an array.
func invokeItems[T any](ctx context.Context, b Bridge, method string, params any) ([]T, error) {
	envelope, err := invokeObject[struct {
		Items []T `json:"items"`
	}](ctx, b, method, params)
	if err != nil {
		return nil, err
	}
	if envelope.Items == nil {
		return []T{}, nil
	}
	return envelope.Items, nil
}

// invokeValue decodes a result that JavaScript returned as a scalar.
func invokeValue(ctx context.Context, b Bridge, method string, params any) (json.RawMessage, error) {
	envelope, err := invokeObject[struct {
		Value json.RawMessage `json:"value"`
	}](ctx, b, method, params)
	if err != nil {
		return nil, err
	}
	return envelope.Value, nil
}

// scalarString renders a JSON string or number as a Go string.
func scalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected a string or number, got %s", raw)
	}
	return n.String(), nil
}
