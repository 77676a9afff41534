package server

import (
	"errors"
	"iter"
	"net"
	"sync"
	"time"

	"github.com/mwren/partyline/pkg/model"
)

// ErrAlreadyLoggedIn is returned by Login when the username is taken.
var ErrAlreadyLoggedIn = errors.New("server: username already logged in")

// SessionRegistry tracks logged-in users. All methods are safe for
// concurrent use; each is a single atomic unit under the registry
// lock. Accessors return copies so callers never hold a reference
// into the map.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session // username -> session
}

// NewSessionRegistry creates an empty session registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*model.Session),
	}
}

// Login registers a new session. A username that is already present is
// rejected with ErrAlreadyLoggedIn and the existing session is left
// untouched.
func (r *SessionRegistry) Login(username string, addr *net.UDPAddr, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[username]; ok {
		return ErrAlreadyLoggedIn
	}
	r.sessions[username] = &model.Session{
		Username:   username,
		Addr:       addr,
		LastActive: now,
	}
	return nil
}

// Touch refreshes the address and liveness timestamp of an existing
// session. It reports whether the username was present.
func (r *SessionRegistry) Touch(username string, addr *net.UDPAddr, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[username]
	if !ok {
		return false
	}
	s.Addr = addr
	s.LastActive = now
	return true
}

// Logout removes a session, returning a copy of it, or nil if the
// username was not logged in. Channel cleanup is the caller's job.
func (r *SessionRegistry) Logout(username string) *model.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[username]
	if !ok {
		return nil
	}
	delete(r.sessions, username)
	cp := *s
	return &cp
}

// Lookup returns a copy of the named session.
func (r *SessionRegistry) Lookup(username string) (model.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[username]
	if !ok {
		return model.Session{}, false
	}
	return *s, true
}

// AddrOf returns the last observed address for a username, or nil if
// the username is not logged in.
func (r *SessionRegistry) AddrOf(username string) *net.UDPAddr {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.sessions[username]; ok {
		return s.Addr
	}
	return nil
}

// Expired yields the usernames whose last activity is older than
// now-timeout. The sequence is built from a snapshot, so callers may
// evict sessions while ranging over it, and may range more than once.
func (r *SessionRegistry) Expired(now time.Time, timeout time.Duration) iter.Seq[string] {
	deadline := now.Add(-timeout)

	r.mu.RLock()
	expired := make([]string, 0)
	for name, s := range r.sessions {
		if s.LastActive.Before(deadline) {
			expired = append(expired, name)
		}
	}
	r.mu.RUnlock()

	return func(yield func(string) bool) {
		for _, name := range expired {
			if !yield(name) {
				return
			}
		}
	}
}

// All returns a snapshot of every active session.
func (r *SessionRegistry) All() []model.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]model.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, *s)
	}
	return result
}

// Count returns the number of active sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
