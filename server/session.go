package server

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned for any operation on an unknown tracking id.
var ErrNotFound = errors.New("session not found")

// Sample is a single location fix. Immutable once created. Coordinates
// and accuracy are caller supplied and not validated; the timestamp is
// always populated.
type Sample struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// Session is a tracking context. CurrentLocation and LastUpdate are nil
// until the first sample is ingested. Active flips to false exactly once
// when the session is stopped.
type Session struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	CreatedAt       time.Time  `json:"createdAt"`
	Active          bool       `json:"active"`
	CurrentLocation *Sample    `json:"currentLocation"`
	LastUpdate      *time.Time `json:"lastUpdate,omitempty"`
}

// SessionStore owns every session for the process lifetime. Sessions are
// stopped, never deleted.
type SessionStore struct {
	mtx      sync.RWMutex
	sessions map[string]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
	}
}

// Create inserts a new active session under a fresh tracking id and
// returns a snapshot of it.
func (s *SessionStore) Create(name string) *Session {
	if len(name) == 0 {
		name = DefaultName
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	id := Random(trackingIDLength)
	for {
		if _, ok := s.sessions[id]; !ok {
			break
		}
		id = Random(trackingIDLength)
	}

	sess := &Session{
		ID:        id,
		Name:      name,
		CreatedAt: time.Now(),
		Active:    true,
	}
	s.sessions[id] = sess

	c := *sess
	return &c
}

// Get returns a snapshot of a session. Snapshots keep callers from
// racing the write path while they marshal.
func (s *SessionStore) Get(id string) (*Session, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	c := *sess
	return &c, nil
}

// List returns a snapshot of every session ever created, active or not.
func (s *SessionStore) List() []*Session {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		c := *sess
		sessions = append(sessions, &c)
	}
	return sessions
}

// Apply sets the current location and last update time. It does not
// check or revive the active flag.
func (s *SessionStore) Apply(id string, sample *Sample) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}

	now := time.Now()
	sess.CurrentLocation = sample
	sess.LastUpdate = &now

	return nil
}

// Stop marks a session inactive. Idempotent.
func (s *SessionStore) Stop(id string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}

	sess.Active = false
	return nil
}
