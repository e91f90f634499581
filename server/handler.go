package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// splitPath strips a prefix off the request path and returns the id and
// trailing action, e.g. /api/sessions/abc123/stop -> ("abc123", "stop")
func splitPath(path, prefix string) (string, string) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

// SessionsHandler serves the session collection
func (s *Server) SessionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.Sessions.List())
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		// the body is optional, a bare POST means anonymous
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&req)
		}

		sess := s.Sessions.Create(req.Name)
		writeJSON(w, http.StatusCreated, map[string]string{
			"trackingId":  sess.ID,
			"trackingUrl": "/track/" + sess.ID,
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported method "+r.Method)
	}
}

// SessionHandler serves a single session and its stop/qr/stats actions
func (s *Server) SessionHandler(w http.ResponseWriter, r *http.Request) {
	id, action := splitPath(r.URL.Path, "/api/sessions/")
	if len(id) == 0 {
		s.NotFoundHandler(w, r)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		sess, err := s.Sessions.Get(id)
		if err != nil {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeJSON(w, http.StatusOK, sess)

	case action == "stop" && r.Method == http.MethodPost:
		if err := s.Stop(id); err != nil {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	case action == "stats" && r.Method == http.MethodGet:
		stats, err := s.Stats(id)
		if err != nil {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeJSON(w, http.StatusOK, stats)

	case action == "qr" && r.Method == http.MethodGet:
		s.serveQR(w, r, id)

	default:
		s.NotFoundHandler(w, r)
	}
}

// serveQR renders the tracking url as a PNG so a sharer can hand the
// link over by pointing a camera at it
func (s *Server) serveQR(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := s.Sessions.Get(id); err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	base := getEnv("WAYPOINT_URL", "http://localhost:"+getEnv("PORT", "9090"))
	png, err := qrcode.Encode(base+"/track/"+id, qrcode.Medium, 256)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Cannot generate QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// LocationHandler ingests location posts and serves trail history
func (s *Server) LocationHandler(w http.ResponseWriter, r *http.Request) {
	id, action := splitPath(r.URL.Path, "/api/location/")
	if len(id) == 0 {
		s.NotFoundHandler(w, r)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodPost:
		var update LocationUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		if _, err := s.Ingest(id, &update); err != nil {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	case action == "history" && r.Method == http.MethodGet:
		// an unknown id just has an empty trail
		writeJSON(w, http.StatusOK, s.History.Trail(id))

	default:
		s.NotFoundHandler(w, r)
	}
}

// PushHandler registers and removes push watchers for a session
func (s *Server) PushHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := splitPath(r.URL.Path, "/api/push/")
	if len(id) == 0 {
		s.NotFoundHandler(w, r)
		return
	}

	if _, err := s.Sessions.Get(id); err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	switch r.Method {
	case http.MethodPost:
		var sub PushSubscription
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil || len(sub.Endpoint) == 0 {
			writeError(w, http.StatusBadRequest, "Invalid subscription")
			return
		}
		s.Push.Watch(id, &sub)
		writeJSON(w, http.StatusOK, map[string]bool{
			"success": true,
			"enabled": s.Push.Enabled(),
		})

	case http.MethodDelete:
		var sub struct {
			Endpoint string `json:"endpoint"`
		}
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil || len(sub.Endpoint) == 0 {
			writeError(w, http.StatusBadRequest, "Invalid subscription")
			return
		}
		s.Push.Unwatch(sub.Endpoint)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported method "+r.Method)
	}
}

// HealthHandler is the liveness check
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"message":   "Waypoint location tracker is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// EventsHandler serves the realtime channel, a websocket when the client
// asks for one and server sent events otherwise. Observers subscribe via
// the id query param or a subscribe message on the socket.
func (s *Server) EventsHandler(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()

	o := NewObserver()

	defer func() {
		// connection gone, drop the subscription with it
		s.Registry.Unsubscribe(o.ID)
	}()

	if id := r.Form.Get("id"); len(id) > 0 {
		s.Subscribe(o, id)
	}

	if IsWebSocket(r) {
		ServeWebSocket(w, r, s, o)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case msg := <-o.Events:
			b, _ := json.Marshal(msg)
			fmt.Fprintf(w, "data: %v\n\n", string(b))

			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

// NotFoundHandler returns the structured payload for paths we don't serve
func (s *Server) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"method":  r.Method,
		"message": "The requested resource was not found. Available routes: /, /track/:id, /admin, /admin/view/:id, /api/sessions, /api/location/:id, /events, /health",
	})
}

func SetHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func WithCors(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// set cors origin allow all
		SetHeaders(w, r)

		// if options return immediately
		if r.Method == "OPTIONS" {
			return
		}

		h.ServeHTTP(w, r)
	})
}

// getEnv returns an environment variable value or a default if empty
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
