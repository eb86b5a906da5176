package session

import (
	"sync"
	"time"
)

// Status is the outcome of reading a user's session.
type Status int

const (
	// StatusNone means no session exists for the user.
	StatusNone Status = iota
	// StatusOK means a valid session exists; the stored code is returned.
	StatusOK
	// StatusExpired means a session existed but its TTL elapsed. The
	// read deletes it, so the signal fires once.
	StatusExpired
)

type entry struct {
	code      string
	expiresAt time.Time
}

// Store holds at most one pending style code per user, valid for a
// fixed TTL from the moment it is set.
type Store struct {
	mu       sync.Mutex
	sessions map[string]entry
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Set stores the pending code for a user. A new code supersedes any
// pending one and restarts the TTL.
func (s *Store) Set(userId, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userId] = entry{
		code:      code,
		expiresAt: s.now().Add(s.ttl),
	}
}

// Status reports the session state for a user. The expiry check and the
// eviction of an expired session happen under the same lock, so a
// session is never observed valid past its expiry instant. A valid read
// does not consume the session.
func (s *Store) Status(userId string) (Status, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[userId]
	if !ok {
		return StatusNone, ""
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.sessions, userId)
		return StatusExpired, ""
	}
	return StatusOK, e.code
}

// Clear removes the session for a user, if any.
func (s *Store) Clear(userId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userId)
}
