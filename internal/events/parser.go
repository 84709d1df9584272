package events

import (
	"encoding/json"
	"fmt"
)

// Parser turns the type and data of a JavaScript event into a typed Event.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse returns nil and no error for event types it does not know.
func (p *Parser) Parse(eventType string, data json.RawMessage, raw json.RawMessage) (Event, error) {
	switch EventType(eventType) {
	case EventTypeReady:
		var ev ReadyEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", eventType, err)
		}
		ev.Raw = raw
		return ev, nil
	case EventTypeConnectRequest:
		var ev ConnectRequestEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", eventType, err)
		}
		ev.Request = data
		return ev, nil
	case EventTypeTransactionRequest:
		var ev TransactionRequestEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", eventType, err)
		}
		ev.Request = data
		return ev, nil
	case EventTypeSignDataRequest:
		var ev SignDataRequestEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", eventType, err)
		}
		ev.Request = data
		return ev, nil
	case EventTypeDisconnect:
		var ev DisconnectEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", eventType, err)
		}
		return ev, nil
	case EventTypeRequestError:
		var ev RequestErrorEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", eventType, err)
		}
		return ev, nil
	case EventTypeBrowserPageStarted, EventTypeBrowserPageFinished, EventTypeBrowserError, EventTypeBrowserBridgeRequest:
		ev := BrowserEvent{Type: EventType(eventType)}
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", eventType, err)
		}
		return ev, nil
	default:
		return nil, nil
	}
}
