package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxIdle is how long an untouched session survives a sweep.
const DefaultMaxIdle = 6 * time.Hour

// Registry holds live in-memory sessions keyed by id. Sessions are never
// persisted as-is; a finished session leaves only its QuizResult behind.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a session under a fresh id and returns the id.
func (r *Registry) Add(s *Session) string {
	id := uuid.New().String()
	s.ID = id
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return id
}

// Get returns the session for an id, or nil.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// Remove drops a session from the registry.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Sweep removes completed and idle sessions and returns how many were
// dropped. Abandoned sessions lose nothing durable: answers only reach the
// progress store through an explicit exit or completion.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.State() == StateComplete || s.Touched().Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
