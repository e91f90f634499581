package server

import (
	"sync"

	"github.com/google/uuid"
)

// Observer is one realtime connection. An observer watches at most one
// session at a time.
type Observer struct {
	ID     string
	Events chan *Message
}

func NewObserver() *Observer {
	return &Observer{
		ID:     uuid.New().String(),
		Events: make(chan *Message, 16),
	}
}

// Send queues a message for the observer without blocking. A slow or
// dead connection drops messages rather than stalling the sender.
func (o *Observer) Send(msg *Message) {
	select {
	case o.Events <- msg:
	default:
	}
}

// Registry is the single source of truth for which observer watches
// which tracking id. The broadcaster queries it rather than scanning
// connections.
type Registry struct {
	mtx       sync.RWMutex
	observers map[string]*Observer
	watching  map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		observers: make(map[string]*Observer),
		watching:  make(map[string]string),
	}
}

// Subscribe points an observer at a tracking id, replacing any prior
// subscription it held.
func (r *Registry) Subscribe(o *Observer, trackingID string) {
	r.mtx.Lock()
	r.observers[o.ID] = o
	r.watching[o.ID] = trackingID
	r.mtx.Unlock()
}

// Unsubscribe drops an observer. Called on connection close; a no-op for
// observers that never subscribed.
func (r *Registry) Unsubscribe(observerID string) {
	r.mtx.Lock()
	delete(r.observers, observerID)
	delete(r.watching, observerID)
	r.mtx.Unlock()
}

// SubscribersOf returns the observers currently watching exactly this
// tracking id.
func (r *Registry) SubscribersOf(trackingID string) []*Observer {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	var observers []*Observer
	for id, watched := range r.watching {
		if watched != trackingID {
			continue
		}
		if o, ok := r.observers[id]; ok {
			observers = append(observers, o)
		}
	}
	return observers
}

// Broadcast delivers a message to every observer of a tracking id.
// Delivery is fire and forget per observer; one broken connection never
// blocks the rest.
func (r *Registry) Broadcast(trackingID string, msg *Message) {
	for _, o := range r.SubscribersOf(trackingID) {
		o.Send(msg)
	}
}
