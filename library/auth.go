package library

import "sync"

// AuthGate answers who, if anyone, is signed in.
type AuthGate interface {
	CurrentUser() (userID string, ok bool)
}

// SessionIdentity is the identity collaborator for one session.
type SessionIdentity struct {
	mu   sync.RWMutex
	user string
}

func (s *SessionIdentity) CurrentUser() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.user != ""
}

func (s *SessionIdentity) SignIn(userID string) {
	s.mu.Lock()
	s.user = userID
	s.mu.Unlock()
}

func (s *SessionIdentity) SignOut() {
	s.mu.Lock()
	s.user = ""
	s.mu.Unlock()
}
