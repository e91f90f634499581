// Package server implements the Waypoint live location tracker.
//
// A session is a shareable tracking context: whoever holds the tracking
// id can post location samples to it, and any number of observers can
// watch it over the realtime channel. State is memory only and lives for
// the process lifetime; restarting the server loses all sessions.
package server

import (
	"crypto/rand"
	"sync"
	"time"
)

const (
	// MaxTrail is the number of samples kept per session. The oldest
	// sample is evicted when the trail overflows.
	MaxTrail = 1000

	// DefaultName is used for sessions created without a name.
	DefaultName = "Anonymous"

	// tracking ids are short enough to read out over the phone
	trackingIDLength = 9
)

var (
	alphanum = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Random generates an i length alphanum string. Backed by crypto/rand
// since tracking ids double as capability tokens.
func Random(i int) string {
	bytes := make([]byte, i)
	rand.Read(bytes)
	for i, b := range bytes {
		bytes[i] = alphanum[b%byte(len(alphanum))]
	}
	return string(bytes)
}

// Message is the wire format of the realtime channel. TrackingID is only
// set on inbound subscribe messages.
type Message struct {
	Type       string  `json:"type"`
	TrackingID string  `json:"trackingId,omitempty"`
	Data       *Sample `json:"data,omitempty"`
}

// LocationUpdate is the inbound payload of a location post. Coordinates
// are passed through as supplied; only the timestamp is defaulted.
type LocationUpdate struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
	Timestamp string   `json:"timestamp"`
}

// Server ties the stores together and owns the two mutation paths for
// session state, Ingest and Stop.
type Server struct {
	Created int64

	Sessions *SessionStore
	History  *HistoryStore
	Registry *Registry
	Push     *PushManager

	// serializes ingest and stop so delivery order matches arrival
	// order for any one session
	mtx sync.Mutex
}

func New() *Server {
	return &Server{
		Created:  time.Now().UnixNano(),
		Sessions: NewSessionStore(),
		History:  NewHistoryStore(),
		Registry: NewRegistry(),
		Push:     NewPushManager(),
	}
}

// Ingest applies a location update to a session and fans it out to the
// session's observers. This is the single write path for location data.
// Updates to a stopped session are still accepted; a sharer's device may
// keep posting for a while after they hit stop.
func (s *Server) Ingest(id string, update *LocationUpdate) (*Sample, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, err := s.Sessions.Get(id); err != nil {
		return nil, err
	}

	sample := &Sample{
		Latitude:  update.Latitude,
		Longitude: update.Longitude,
		Accuracy:  update.Accuracy,
		Timestamp: update.Timestamp,
	}
	if len(sample.Timestamp) == 0 {
		sample.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	if err := s.Sessions.Apply(id, sample); err != nil {
		return nil, err
	}
	s.History.Append(id, sample)

	s.Registry.Broadcast(id, &Message{Type: "location", Data: sample})

	return sample, nil
}

// Stop deactivates a session, tells its observers the sharing ended and
// alerts any push watchers. Stopping twice is a no-op success.
func (s *Server) Stop(id string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	sess, err := s.Sessions.Get(id)
	if err != nil {
		return err
	}

	if err := s.Sessions.Stop(id); err != nil {
		return err
	}

	s.Registry.Broadcast(id, &Message{Type: "stopped"})
	go s.Push.NotifyStopped(id, sess.Name)

	return nil
}

// Subscribe points an observer at a session. If the session already has
// a location the observer gets it immediately, a direct send rather than
// a broadcast, so late joiners catch up without waiting for the next
// update.
func (s *Server) Subscribe(o *Observer, id string) {
	s.Registry.Subscribe(o, id)

	sess, err := s.Sessions.Get(id)
	if err != nil || sess.CurrentLocation == nil {
		return
	}

	o.Send(&Message{Type: "location", Data: sess.CurrentLocation})
}
