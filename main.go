package main

import (
	"context"
	"embed"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"waypoint.live/server"
)

//go:embed html/*
var html embed.FS

func main() {
	// optional .env, real env wins
	godotenv.Load()

	s := server.New()

	htmlContent, err := fs.Sub(html, "html")
	if err != nil {
		log.Fatal(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions", s.SessionsHandler)
	mux.HandleFunc("/api/sessions/", s.SessionHandler)
	mux.HandleFunc("/api/location/", s.LocationHandler)
	mux.HandleFunc("/api/push/", s.PushHandler)
	mux.HandleFunc("/events", s.EventsHandler)
	mux.HandleFunc("/health", s.HealthHandler)
	mux.HandleFunc("/", pageHandler(htmlContent, s))

	port := os.Getenv("PORT")
	if len(port) == 0 {
		port = "9090"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           h2c.NewHandler(server.WithCors(mux), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("[main] waypoint listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Printf("[main] shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[main] forced shutdown: %v", err)
	}
}

// pageHandler serves the embedded pages and the structured not found
// payload for everything else
func pageHandler(content fs.FS, s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serve := func(name string) {
			b, err := fs.ReadFile(content, name)
			if err != nil {
				s.NotFoundHandler(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write(b)
		}

		switch {
		case r.URL.Path == "/":
			serve("index.html")
		case strings.HasPrefix(r.URL.Path, "/track/"):
			serve("track.html")
		case r.URL.Path == "/admin", strings.HasPrefix(r.URL.Path, "/admin/view/"):
			serve("admin.html")
		default:
			s.NotFoundHandler(w, r)
		}
	}
}
