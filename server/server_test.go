package server

import (
	"testing"
	"time"
)

func TestIngestUnknownSession(t *testing.T) {
	s := New()

	o := NewObserver()
	s.Subscribe(o, "nope")

	if _, err := s.Ingest("nope", &LocationUpdate{Latitude: 1, Longitude: 2}); err != ErrNotFound {
		t.Fatalf("Ingest unknown id: got %v, want ErrNotFound", err)
	}

	// no side effects at all
	if got := len(s.History.Trail("nope")); got != 0 {
		t.Errorf("history recorded for unknown session: %d entries", got)
	}
	assertEmpty(t, o)
}

func TestIngestDefaultsTimestamp(t *testing.T) {
	s := New()
	sess := s.Sessions.Create("")

	sample, err := s.Ingest(sess.ID, &LocationUpdate{Latitude: 1, Longitude: 2})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(sample.Timestamp) == 0 {
		t.Fatal("timestamp not defaulted")
	}
	if _, err := time.Parse(time.RFC3339, sample.Timestamp); err != nil {
		t.Errorf("defaulted timestamp %q not RFC3339: %v", sample.Timestamp, err)
	}
}

func TestIngestKeepsCallerTimestamp(t *testing.T) {
	s := New()
	sess := s.Sessions.Create("")

	sample, err := s.Ingest(sess.ID, &LocationUpdate{Latitude: 1, Longitude: 2, Timestamp: "2025-06-01T10:00:00Z"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if sample.Timestamp != "2025-06-01T10:00:00Z" {
		t.Errorf("timestamp = %q, want caller supplied value", sample.Timestamp)
	}
}

func TestIngestUpdatesStateAndTrail(t *testing.T) {
	s := New()
	sess := s.Sessions.Create("")

	acc := 5.0
	s.Ingest(sess.ID, &LocationUpdate{Latitude: 1, Longitude: 2, Accuracy: &acc})

	got, _ := s.Sessions.Get(sess.ID)
	if got.CurrentLocation == nil {
		t.Fatal("current location not set")
	}
	if got.CurrentLocation.Latitude != 1 || got.CurrentLocation.Longitude != 2 {
		t.Errorf("current location = %+v", got.CurrentLocation)
	}
	if got.CurrentLocation.Accuracy == nil || *got.CurrentLocation.Accuracy != 5 {
		t.Error("accuracy not passed through")
	}

	trail := s.History.Trail(sess.ID)
	if len(trail) != 1 {
		t.Fatalf("trail length = %d, want 1", len(trail))
	}
	if trail[0] != got.CurrentLocation {
		t.Error("trail entry and current location should be the same sample")
	}
}

func TestIngestBroadcastsToSubscribers(t *testing.T) {
	s := New()
	sess := s.Sessions.Create("")

	o := NewObserver()
	s.Subscribe(o, sess.ID)

	// nothing yet, no location exists to replay
	assertEmpty(t, o)

	s.Ingest(sess.ID, &LocationUpdate{Latitude: 1, Longitude: 2})

	msg := recv(t, o)
	if msg.Type != "location" {
		t.Errorf("message type = %q, want location", msg.Type)
	}
	if msg.Data.Latitude != 1 || msg.Data.Longitude != 2 {
		t.Errorf("broadcast sample = %+v", msg.Data)
	}
	assertEmpty(t, o)
}

func TestIngestIsolationAcrossSessions(t *testing.T) {
	s := New()
	one := s.Sessions.Create("one")
	two := s.Sessions.Create("two")

	a, b := NewObserver(), NewObserver()
	s.Subscribe(a, one.ID)
	s.Subscribe(b, two.ID)

	s.Ingest(one.ID, &LocationUpdate{Latitude: 1})

	recv(t, a)
	assertEmpty(t, b)
}

func TestIngestStoppedSessionStillApplies(t *testing.T) {
	s := New()
	sess := s.Sessions.Create("")
	s.Stop(sess.ID)

	if _, err := s.Ingest(sess.ID, &LocationUpdate{Latitude: 1}); err != nil {
		t.Fatalf("Ingest after stop: %v", err)
	}
	if got := len(s.History.Trail(sess.ID)); got != 1 {
		t.Errorf("trail length = %d, want 1", got)
	}
}

func TestSubscribeReplay(t *testing.T) {
	s := New()
	sess := s.Sessions.Create("")

	early := NewObserver()
	s.Subscribe(early, sess.ID)

	s.Ingest(sess.ID, &LocationUpdate{Latitude: 3, Longitude: 4})
	recv(t, early)

	// a late joiner gets the current location immediately
	late := NewObserver()
	s.Subscribe(late, sess.ID)

	msg := recv(t, late)
	if msg.Type != "location" || msg.Data.Latitude != 3 {
		t.Errorf("replayed message = %+v", msg)
	}
	assertEmpty(t, late)

	// replay is a direct send, the earlier observer sees nothing extra
	assertEmpty(t, early)
}

func TestSubscribeNoReplayWithoutLocation(t *testing.T) {
	s := New()
	sess := s.Sessions.Create("")

	o := NewObserver()
	s.Subscribe(o, sess.ID)
	assertEmpty(t, o)
}

func TestStopNotifiesObservers(t *testing.T) {
	s := New()
	sess := s.Sessions.Create("")

	o := NewObserver()
	s.Subscribe(o, sess.ID)

	if err := s.Stop(sess.ID); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	msg := recv(t, o)
	if msg.Type != "stopped" {
		t.Errorf("message type = %q, want stopped", msg.Type)
	}
}

func TestStopUnknownSession(t *testing.T) {
	s := New()

	if err := s.Stop("nope"); err != ErrNotFound {
		t.Errorf("Stop unknown id: got %v, want ErrNotFound", err)
	}
}

func TestRandomLengthAndCharset(t *testing.T) {
	id := Random(16)
	if len(id) != 16 {
		t.Fatalf("Random(16) length = %d", len(id))
	}
	for _, c := range id {
		ok := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
		if !ok {
			t.Fatalf("Random produced %q outside the alphanum charset", c)
		}
	}
}
