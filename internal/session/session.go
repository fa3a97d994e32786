// Package session keeps one independent filter state per dashboard user.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"aidash/internal/dashboard"
	"aidash/internal/filters"
	"aidash/internal/models"
)

var ErrNotFound = errors.New("session not found")

// Session is one user's filter state and selector values.
type Session struct {
	ID string

	mu       sync.Mutex
	state    *filters.State
	controls dashboard.Controls
	lastSeen time.Time
}

// Do runs fn with exclusive access to the session's state.
func (s *Session) Do(fn func(state *filters.State, controls *dashboard.Controls) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state, &s.controls)
}

// Manager is a registry of sessions. Safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	vocab    models.Vocabulary
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a registry; sessions idle longer than ttl are dropped. Zero ttl keeps them forever.
func NewManager(vocab models.Vocabulary, ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		vocab:    vocab,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a session in the reset state with default controls.
func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()

	s := &Session{
		ID:       uuid.NewString(),
		state:    filters.New(m.vocab),
		controls: dashboard.DefaultControls(),
		lastSeen: m.now(),
	}
	m.sessions[s.ID] = s
	return s
}

// Get returns the session with id and marks it as active.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.lastSeen = m.now()
	return s, nil
}

// Delete removes the session with id.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Rebase moves every session onto the vocabulary of a reloaded dataset.
func (m *Manager) Rebase(vocab models.Vocabulary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vocab = vocab
	for _, s := range m.sessions {
		s.mu.Lock()
		s.state.Rebase(vocab)
		s.mu.Unlock()
	}
}

func (m *Manager) sweepLocked() {
	if m.ttl <= 0 {
		return
	}
	cutoff := m.now().Add(-m.ttl)
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}
