package server

import "sync"

// HistoryStore keeps the trail of samples per tracking id, bounded to
// MaxTrail entries. Trails are created lazily on first append, so an
// append for an id the session store has never seen still works.
type HistoryStore struct {
	mtx    sync.RWMutex
	trails map[string][]*Sample
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		trails: make(map[string][]*Sample),
	}
}

// Append adds a sample to a trail, evicting from the front when the
// trail overflows.
func (h *HistoryStore) Append(id string, sample *Sample) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	trail := append(h.trails[id], sample)
	if len(trail) > MaxTrail {
		trail = trail[1:]
	}
	h.trails[id] = trail
}

// Trail returns the recorded samples for an id in arrival order, empty
// when nothing has been recorded yet.
func (h *HistoryStore) Trail(id string) []*Sample {
	h.mtx.RLock()
	defer h.mtx.RUnlock()

	trail := make([]*Sample, len(h.trails[id]))
	copy(trail, h.trails[id])
	return trail
}
