package dispatch

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/rapidryde/internal/models"
	"github.com/example/rapidryde/internal/observability"
)

// AdminIdentity receives every event regardless of user or driver.
const AdminIdentity = "admin"

// Conn is the part of a websocket connection the registry writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// WSSession represents one connected view.
type WSSession struct {
	conn Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(ev models.RideEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(ev)
}

// WSRegistry holds live sessions keyed by identity (a user id, a driver id,
// or AdminIdentity). An identity may have several sessions open.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]map[*WSSession]struct{}
}

func NewWSRegistry() *WSRegistry {
	return &WSRegistry{sessions: make(map[string]map[*WSSession]struct{})}
}

func (r *WSRegistry) Add(identity string, conn Conn) *WSSession {
	s := &WSSession{conn: conn}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[identity] == nil {
		r.sessions[identity] = make(map[*WSSession]struct{})
	}
	r.sessions[identity][s] = struct{}{}
	observability.WSSessions.Inc()
	return s
}

func (r *WSRegistry) Remove(identity string, s *WSSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sessions[identity]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(r.sessions, identity)
	}
	observability.WSSessions.Dec()
	_ = s.conn.Close()
}

// Count returns the number of sessions open for identity.
func (r *WSRegistry) Count(identity string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[identity])
}

func (*WSRegistry) Name() string { return "websocket" }

// Send delivers the event to the ride's user, its driver and every admin
// session. Sessions that fail a write are dropped. Having no listener is not
// an error.
func (r *WSRegistry) Send(_ context.Context, ev models.RideEvent) error {
	targets := []string{AdminIdentity}
	if ev.UserID != "" {
		targets = append(targets, ev.UserID)
	}
	if ev.DriverID != "" && ev.DriverID != ev.UserID {
		targets = append(targets, ev.DriverID)
	}
	var firstErr error
	for _, id := range targets {
		for _, s := range r.snapshot(id) {
			if err := s.Send(ev); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				r.Remove(id, s)
			}
		}
	}
	return firstErr
}

func (r *WSRegistry) snapshot(identity string) []*WSSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*WSSession, 0, len(r.sessions[identity]))
	for s := range r.sessions[identity] {
		out = append(out, s)
	}
	return out
}

var _ Conn = (*websocket.Conn)(nil)
