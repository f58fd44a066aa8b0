// Package admin serves the live state of a running fleet simulation over HTTP.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"fixturegen/internal/signalk"
)

const shutdownTimeout = 5 * time.Second

var indexTpl = template.Must(template.New("index").Parse(`<!doctype html>
<html><head><title>fixturegen fleet</title><meta http-equiv="refresh" content="2"></head>
<body>
<h1>Fleet {{.RunID}}</h1>
<p>step {{.Steps}}{{if .Timestamp}} at {{.Timestamp}}{{end}}</p>
<table>
<tr><th>Vessel</th><th>MMSI</th><th>Latitude</th><th>Longitude</th><th>Heading</th><th>SOG</th></tr>
{{range .Vessels}}<tr><td><a href="/signalk/v1/api/vessels/{{.Key}}">{{.Key}}</a></td><td>{{.MMSI}}</td><td>{{printf "%.5f" .Latitude}}</td><td>{{printf "%.5f" .Longitude}}</td><td>{{printf "%.1f" .Heading}}</td><td>{{printf "%.0f" .SOG}}</td></tr>
{{end}}</table>
</body></html>
`))

// Status summarizes the latest fleet document.
type Status struct {
	RunID     string    `json:"run_id"`
	Steps     int       `json:"steps"`
	Vessels   int       `json:"vessels"`
	Timestamp string    `json:"timestamp,omitempty"`
	Updated   time.Time `json:"updated"`
}

// Server keeps a copy of the most recent fleet document and serves it in
// the Signal K REST layout. It implements sim.FleetWriter.
type Server struct {
	runID  string
	router *mux.Router
	log    *slog.Logger

	mu      sync.RWMutex
	doc     *signalk.Document
	writes  int
	updated time.Time
}

// NewServer creates a server for the given run that logs to log.
func NewServer(log *slog.Logger, runID string) *Server {
	s := &Server{runID: runID, router: mux.NewRouter(), log: log}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/signalk", s.handleDiscovery).Methods(http.MethodGet)
	s.router.HandleFunc("/signalk/v1/api/", s.handleModel).Methods(http.MethodGet)
	s.router.HandleFunc("/signalk/v1/api/vessels/{id}", s.handleVessel).Methods(http.MethodGet)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// WriteFleet stores a copy of doc. The simulator keeps mutating its own
// document, so the vessels are copied under the lock.
func (s *Server) WriteFleet(doc *signalk.Document) error {
	cp := &signalk.Document{
		Context:   doc.Context,
		Timestamp: doc.Timestamp,
		Vessels:   make(map[string]*signalk.Vessel, len(doc.Vessels)),
	}
	for k, v := range doc.Vessels {
		vc := *v
		cp.Vessels[k] = &vc
	}
	s.mu.Lock()
	s.doc = cp
	s.writes++
	s.updated = time.Now().UTC()
	s.mu.Unlock()
	return nil
}

// Start serves on addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.log.Info("fleet server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) snapshot() (*signalk.Document, Status) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{RunID: s.runID, Updated: s.updated}
	if s.writes > 0 {
		st.Steps = s.writes - 1
	}
	if s.doc != nil {
		st.Vessels = len(s.doc.Vessels)
		st.Timestamp = s.doc.Timestamp
	}
	return s.doc, st
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	_, st := s.snapshot()
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"endpoints": map[string]any{
			"v1": map[string]string{
				"version":      "1.4.0",
				"signalk-http": "http://" + r.Host + "/signalk/v1/api/",
			},
		},
	})
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	doc, _ := s.snapshot()
	if doc == nil {
		http.Error(w, "no fleet yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleVessel(w http.ResponseWriter, r *http.Request) {
	doc, _ := s.snapshot()
	if doc == nil {
		http.Error(w, "no fleet yet", http.StatusServiceUnavailable)
		return
	}
	v, ok := doc.Vessels[mux.Vars(r)["id"]]
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type vesselRow struct {
	Key       string
	MMSI      string
	Latitude  float64
	Longitude float64
	Heading   float64
	SOG       float64
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	doc, st := s.snapshot()
	data := struct {
		Status
		Vessels []vesselRow
	}{Status: st}
	if doc != nil {
		for _, k := range doc.Keys() {
			v := doc.Vessels[k]
			data.Vessels = append(data.Vessels, vesselRow{
				Key:       k,
				MMSI:      v.MMSI,
				Latitude:  v.Navigation.Position.Latitude,
				Longitude: v.Navigation.Position.Longitude,
				Heading:   v.Heading.TrueHeading,
				SOG:       v.SpeedOverGround,
			})
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTpl.Execute(w, data); err != nil {
		s.log.Warn("render index", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
