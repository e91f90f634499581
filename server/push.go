package server

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// PushSubscription is the browser push subscription as handed to us by
// the PushManager API on the watcher's side.
type PushSubscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// PushWatcher ties one push subscription to the tracking id it watches.
type PushWatcher struct {
	TrackingID   string            `json:"trackingId"`
	Subscription *PushSubscription `json:"subscription"`
	Added        time.Time         `json:"added"`
	LastPush     time.Time         `json:"lastPush"`
}

// PushNotification is the payload delivered to the browser.
type PushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag,omitempty"`
}

// PushManager sends web push alerts to watchers of a session. VAPID keys
// come from the environment; without them push is disabled and every
// call is a no-op.
type PushManager struct {
	mu           sync.RWMutex
	watchers     map[string]*PushWatcher // endpoint -> watcher
	vapidPublic  string
	vapidPrivate string
	subject      string
}

func NewPushManager() *PushManager {
	pm := &PushManager{
		watchers:     make(map[string]*PushWatcher),
		vapidPublic:  os.Getenv("VAPID_PUBLIC_KEY"),
		vapidPrivate: os.Getenv("VAPID_PRIVATE_KEY"),
		subject:      "mailto:push@waypoint.live",
	}

	if !pm.Enabled() {
		log.Printf("[push] VAPID keys not configured, push disabled")
	}

	return pm
}

// Enabled reports whether VAPID keys are configured.
func (pm *PushManager) Enabled() bool {
	return pm.vapidPublic != "" && pm.vapidPrivate != ""
}

// Watch registers a subscription for a tracking id, replacing any prior
// registration of the same endpoint.
func (pm *PushManager) Watch(trackingID string, sub *PushSubscription) {
	pm.mu.Lock()
	pm.watchers[sub.Endpoint] = &PushWatcher{
		TrackingID:   trackingID,
		Subscription: sub,
		Added:        time.Now(),
	}
	pm.mu.Unlock()

	log.Printf("[push] watcher added for session %s", trackingID)
}

// Unwatch removes a subscription by endpoint. No-op if unknown.
func (pm *PushManager) Unwatch(endpoint string) {
	pm.mu.Lock()
	delete(pm.watchers, endpoint)
	pm.mu.Unlock()
}

// Watchers returns the subscriptions registered for a tracking id.
func (pm *PushManager) Watchers(trackingID string) []*PushWatcher {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	var watchers []*PushWatcher
	for _, w := range pm.watchers {
		if w.TrackingID == trackingID {
			watchers = append(watchers, w)
		}
	}
	return watchers
}

// NotifyStopped alerts every watcher of a tracking id that sharing has
// ended. Failures are logged and expired subscriptions dropped; nothing
// is surfaced to the caller.
func (pm *PushManager) NotifyStopped(trackingID, name string) {
	if !pm.Enabled() {
		return
	}

	notification := &PushNotification{
		Title: "Waypoint",
		Body:  name + " stopped sharing their location",
		Tag:   "stopped-" + trackingID,
	}

	for _, w := range pm.Watchers(trackingID) {
		pm.send(w, notification)
	}
}

func (pm *PushManager) send(w *PushWatcher, notification *PushNotification) {
	// max one push per minute per watcher
	if time.Since(w.LastPush) < time.Minute {
		return
	}

	payload, _ := json.Marshal(notification)

	resp, err := webpush.SendNotification(payload, &webpush.Subscription{
		Endpoint: w.Subscription.Endpoint,
		Keys: webpush.Keys{
			P256dh: w.Subscription.Keys.P256dh,
			Auth:   w.Subscription.Keys.Auth,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  pm.vapidPublic,
		VAPIDPrivateKey: pm.vapidPrivate,
		Subscriber:      pm.subject,
		TTL:             60,
	})
	if err != nil {
		log.Printf("[push] failed to send for session %s: %v", w.TrackingID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		// subscription expired upstream
		pm.Unwatch(w.Subscription.Endpoint)
		return
	}

	pm.mu.Lock()
	w.LastPush = time.Now()
	pm.mu.Unlock()
}
