package bridge

import (
	"bytes"
	"encoding/json"
)

// Kinds of messages posted by the JavaScript side.
const (
	KindReady         = "ready"
	KindEvent         = "event"
	KindResponse      = "response"
	KindJSBridgeEvent = "jsBridgeEvent"
)

const (
	MethodInit                 = "init"
	MethodSetEventsListeners   = "setEventsListeners"
	MethodRemoveEventListeners = "removeEventListeners"
)

type inboundMessage struct {
	Kind      string          `json:"kind"`
	ID        string          `json:"id"`
	Result    json.RawMessage `json:"result"`
	Error     json.RawMessage `json:"error"`
	Event     json.RawMessage `json:"event"`
	SessionID string          `json:"sessionId"`
}

// Response is the envelope resolving a pending call.
type Response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

type eventEnvelope struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data"`
}

var emptyObject = json.RawMessage(`{}`)

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// normalizeResult gives every result the shape of a JSON object: arrays are
// wrapped as {"items": [...]}, scalars as {"value": x} and a missing result
// becomes {}.
func normalizeResult(raw json.RawMessage) (json.RawMessage, error) {
	if isAbsent(raw) {
		return emptyObject, nil
	}
	trimmed := bytes.TrimSpace(raw)
	switch trimmed[0] {
	case '{':
		return trimmed, nil
	case '[':
		return json.Marshal(map[string]json.RawMessage{"items": trimmed})
	default:
		return json.Marshal(map[string]json.RawMessage{"value": trimmed})
	}
}

// errorMessage extracts the message of a response error, which is either a
// bare string or an object with a message field.
func errorMessage(raw json.RawMessage) (string, bool) {
	if isAbsent(raw) {
		return "", false
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return msg, true
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message == "" {
			return "unknown error", true
		}
		return obj.Message, true
	}
	return string(bytes.TrimSpace(raw)), true
}
