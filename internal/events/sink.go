package events

import (
	"encoding/json"
	"log/slog"
)

const DefaultSubjectPrefix = "walletkit.events"

// Envelope is the wire form of an event outside the process.
type Envelope struct {
	ID    string    `json:"id"`
	Type  EventType `json:"type"`
	Event Event     `json:"event"`
}

func NewEnvelope(id string, event Event) Envelope {
	return Envelope{ID: id, Type: event.GetType(), Event: event}
}

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes every event on <prefix>.<type>.
type NATSSink struct {
	publisher Publisher
	prefix    string
}

func NewNATSSink(publisher Publisher, prefix string) *NATSSink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSSink{
		publisher: publisher,
		prefix:    prefix,
	}
}

func (s *NATSSink) Subject(eventType EventType) string {
	return s.prefix + "." + string(eventType)
}

func (s *NATSSink) HandleEvent(id string, event Event) {
	data, err := json.Marshal(NewEnvelope(id, event))
	if err != nil {
		slog.Warn("Error marshalling event", "type", event.GetType(), "error", err)
		return
	}
	if err := s.publisher.Publish(s.Subject(event.GetType()), data); err != nil {
		slog.Warn("Error publishing event to NATS", "type", event.GetType(), "error", err)
	}
}
