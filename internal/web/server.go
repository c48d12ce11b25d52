// Package web serves the espresso controller's live state over HTTP: a
// dashboard with the brew state, shot timer, probe temperatures and target,
// the same snapshot as JSON for scripts, and the Prometheus metrics.
//
// Every response reflects the tracker at request time, so nothing is cached.
// Disconnected probes appear as "--- C" on the page and null in the JSON.
package web

import (
	"context"
	"net"
	"net/http"

	"github.com/sweeney/espresso-shot/internal/status"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeHTML = "text/html; charset=utf-8"

	// MachineStateHeader carries the brew state so a poller can watch for
	// shots with HEAD requests.
	MachineStateHeader = "X-Espresso-Machine-State"
)

// Server serves the status of one controller.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// New creates a Server that reads state from the given tracker. metrics, if
// non-nil, is mounted at /metrics.
func New(addr string, tracker *status.Tracker, metrics http.Handler) *Server {
	s := &Server{tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDashboard)
	mux.HandleFunc("/index.html", s.handleDashboard)
	mux.HandleFunc("/index.json", s.handleStatus)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown stops accepting requests and waits for open ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// snapshot answers the method check and the common headers. It returns
// false when the request has already been answered.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request, contentType string) (status.Snapshot, bool) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return status.Snapshot{}, false
	}
	snap := s.tracker.Snapshot()
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Cache-Control", "no-store")
	h.Set(MachineStateHeader, snap.Device.Machine.String())
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return snap, false
	}
	return snap, true
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	if snap, ok := s.snapshot(w, r, contentTypeHTML); ok {
		renderHTML(w, snap)
	}
}

// handleStatus writes the status document. NaN and infinite temperatures
// are encoded as null, which plain encoding/json would reject.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if snap, ok := s.snapshot(w, r, contentTypeJSON); ok {
		w.Write(status.FormatJSON(snap))
	}
}
