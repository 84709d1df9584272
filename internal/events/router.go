package events

import (
	"log/slog"
	"sync"
)

// MaxQueuedEvents bounds the events kept while no handler is registered.
const MaxQueuedEvents = 100

type Handler interface {
	HandleEvent(id string, event Event)
}

type HandlerFunc func(id string, event Event)

func (f HandlerFunc) HandleEvent(id string, event Event) {
	f(id, event)
}

type queuedEvent struct {
	id    string
	event Event
}

type handlerEntry struct {
	id      int
	handler Handler
}

// Router fans events out to handlers. Events that arrive before the first
// handler are queued and replayed to it. Deliveries never overlap: a live
// event waits until the replay has finished. Handlers must not call AddHandler
// or Dispatch.
type Router struct {
	// delivering is held for the whole of a replay or a dispatch.
	delivering sync.Mutex

	mu       sync.Mutex
	handlers []handlerEntry
	nextID   int
	queue    []queuedEvent
}

func NewRouter() *Router {
	return &Router{}
}

// AddHandler registers h and returns an id for RemoveHandler.
func (r *Router) AddHandler(h Handler) int {
	r.delivering.Lock()
	defer r.delivering.Unlock()

	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.handlers = append(r.handlers, handlerEntry{id: id, handler: h})
	var replay []queuedEvent
	if len(r.handlers) == 1 {
		replay = r.queue
		r.queue = nil
	}
	r.mu.Unlock()

	if len(replay) > 0 {
		slog.Debug("Replaying queued events", "count", len(replay))
	}
	for _, q := range replay {
		deliver(h, q.id, q.event)
	}
	return id
}

func (r *Router) RemoveHandler(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, entry := range r.handlers {
		if entry.id == id {
			r.handlers = append(r.handlers[:i], r.handlers[i+1:]...)
			return
		}
	}
}

func (r *Router) Dispatch(id string, eventType string, event Event) {
	r.delivering.Lock()
	defer r.delivering.Unlock()

	r.mu.Lock()
	if len(r.handlers) == 0 {
		if len(r.queue) >= MaxQueuedEvents {
			slog.Warn("Event queue full, dropping oldest event", "type", r.queue[0].event.GetType())
			r.queue = r.queue[1:]
		}
		r.queue = append(r.queue, queuedEvent{id: id, event: event})
		r.mu.Unlock()
		slog.Debug("Queued event until a handler is registered", "type", eventType, "id", id)
		return
	}
	handlers := make([]Handler, 0, len(r.handlers))
	for _, entry := range r.handlers {
		handlers = append(handlers, entry.handler)
	}
	r.mu.Unlock()

	for _, h := range handlers {
		deliver(h, id, event)
	}
}

func (r *Router) QueuedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

func deliver(h Handler, id string, event Event) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Event handler panicked", "type", event.GetType(), "id", id, "panic", rec)
		}
	}()
	h.HandleEvent(id, event)
}
