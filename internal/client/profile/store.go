// Package profile holds the in-memory current profile and the session mode.
// Every profile that leaves the store is a deep copy.
package profile

import (
	"sync"

	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
)

type Mode int

const (
	Unauthenticated Mode = iota
	Authenticating
	Authenticated
	Demo
)

func (m Mode) String() string {
	switch m {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Demo:
		return "demo"
	default:
		return "unauthenticated"
	}
}

// Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	mode    Mode
	current *models.Profile
	roster  []*models.Profile
	version uint64
}

func NewStore() *Store {
	return &Store{}
}

// Current returns a copy of the current profile, or nil.
func (s *Store) Current() *models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

func (s *Store) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Snapshot returns the mode and a copy of the profile read together.
func (s *Store) Snapshot() (Mode, *models.Profile) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode, s.current.Clone()
}

// Version increases on every change of the profile or mode.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Replace installs p (copied) as current under mode.
func (s *Store) Replace(mode Mode, p *models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.current = p.Clone()
	s.version++
}

// SetMode changes the mode and keeps the profile.
func (s *Store) SetMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.version++
}

// Clear drops the profile and returns to Unauthenticated.
func (s *Store) Clear() {
	s.Replace(Unauthenticated, nil)
}

// Apply runs fn on a copy of the current profile and installs the result.
// It returns a copy of the installed profile and the mode it was applied
// under. Without a current profile it returns common.ErrNoActiveSession and
// fn is not called. An error from fn leaves the store unchanged.
func (s *Store) Apply(fn func(p *models.Profile) (*models.Profile, error)) (*models.Profile, Mode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, s.mode, common.ErrNoActiveSession
	}
	next, err := fn(s.current.Clone())
	if err != nil {
		return nil, s.mode, err
	}
	s.current = next.Clone()
	s.version++
	return next, s.mode, nil
}

// SetRoster caches the list of known profiles for admin views.
func (s *Store) SetRoster(list []*models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = make([]*models.Profile, len(list))
	for i, p := range list {
		s.roster[i] = p.Clone()
	}
}

// Roster returns copies of the cached profiles.
func (s *Store) Roster() []*models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Profile, len(s.roster))
	for i, p := range s.roster {
		out[i] = p.Clone()
	}
	return out
}
