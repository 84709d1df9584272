package sessions

import (
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/go-errors/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

var ErrSessionGone = errors.New("browser session is gone")

// Injector delivers JavaScript bridge events into one browser session.
type Injector interface {
	InjectEvent(event json.RawMessage) error
}

// Registry maps browser session ids to their injectors.
type Registry struct {
	injectors *xsync.MapOf[string, Injector]
}

func NewRegistry() *Registry {
	return &Registry{
		injectors: xsync.NewMapOf[string, Injector](),
	}
}

// Register replaces any injector already registered for sessionID.
func (r *Registry) Register(sessionID string, injector Injector) {
	r.injectors.Store(sessionID, injector)
}

func (r *Registry) Unregister(sessionID string) {
	r.injectors.Delete(sessionID)
}

// UnregisterIf removes sessionID only while it still maps to injector.
func (r *Registry) UnregisterIf(sessionID string, injector Injector) {
	r.injectors.Compute(sessionID, func(current Injector, loaded bool) (Injector, bool) {
		if !loaded || current != injector {
			return current, !loaded
		}
		return nil, true
	})
}

func (r *Registry) InjectorForSession(sessionID string) (Injector, bool) {
	return r.injectors.Load(sessionID)
}

// Broadcast injects event into every session and returns how many accepted it.
func (r *Registry) Broadcast(event json.RawMessage) int {
	delivered := 0
	r.injectors.Range(func(sessionID string, injector Injector) bool {
		if err := injector.InjectEvent(event); err != nil {
			slog.Warn("Failed to broadcast bridge event", "session", sessionID, "error", err)
			return true
		}
		delivered++
		return true
	})
	return delivered
}

func (r *Registry) Len() int {
	return r.injectors.Size()
}

func (r *Registry) IDs() []string {
	ids := make([]string, 0, r.injectors.Size())
	r.injectors.Range(func(sessionID string, _ Injector) bool {
		ids = append(ids, sessionID)
		return true
	})
	sort.Strings(ids)
	return ids
}
