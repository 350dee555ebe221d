// Package session holds the client's bearer credential and persists it
// between runs.
package session

import "sync"

// Session is the explicit credential holder shared by the remote client and
// the UI. The zero value is an anonymous session.
type Session struct {
	mu        sync.RWMutex
	token     string
	email     string
	nextID    int
	listeners map[int]func(token string)
}

// New returns a session initialised with token (may be empty).
func New(token, email string) *Session {
	return &Session{token: token, email: email}
}

// Token returns the current bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Email returns the account the token was issued for, if known.
func (s *Session) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

// Authenticated reports whether a token is present. It does not validate it.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Set replaces the credential and notifies listeners when it changed.
func (s *Session) Set(token, email string) {
	s.mu.Lock()
	changed := s.token != token
	s.token, s.email = token, email
	fns := s.snapshotListeners()
	s.mu.Unlock()

	if changed {
		for _, fn := range fns {
			fn(token)
		}
	}
}

// Clear signs the session out.
func (s *Session) Clear() {
	s.Set("", "")
}

// OnChange registers fn to be called after the token changes. The returned
// function removes the registration.
func (s *Session) OnChange(fn func(token string)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[int]func(string))
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) snapshotListeners() []func(string) {
	fns := make([]func(string), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return fns
}
