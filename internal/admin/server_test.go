package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fixturegen/internal/logging"
	"fixturegen/internal/signalk"
)

var discard = logging.NewWithWriter(io.Discard, "info")

func newFleet(t *testing.T) (*signalk.Simulator, *signalk.Document) {
	t.Helper()
	sim := signalk.NewSimulator(rand.New(rand.NewSource(1)), func() time.Time { return time.Unix(0, 0) })
	doc, err := sim.Build(3, signalk.Position{Latitude: 37.7749, Longitude: -122.4194}, 10)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return sim, doc
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestModelBeforeFirstWrite(t *testing.T) {
	s := NewServer(discard, "run-1")
	if w := get(t, s, "/signalk/v1/api/"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	w := get(t, s, "/status")
	var st Status
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.RunID != "run-1" || st.Vessels != 0 || st.Steps != 0 {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestModelServesCopy(t *testing.T) {
	sim, doc := newFleet(t)
	s := NewServer(discard, "run-2")
	sim.Step(doc)
	if err := s.WriteFleet(doc); err != nil {
		t.Fatalf("WriteFleet: %v", err)
	}
	before := doc.Vessels["boat-2"].Navigation.Position

	// Stepping the live document must not leak into the served copy.
	sim.Step(doc)
	if doc.Vessels["boat-2"].Navigation.Position == before {
		t.Fatalf("live vessel did not move")
	}

	w := get(t, s, "/signalk/v1/api/")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	served, err := signalk.Decode(w.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if served.Vessels["boat-2"].Navigation.Position != before {
		t.Fatalf("served document changed with the live one")
	}
}

func TestStatusCountsSteps(t *testing.T) {
	sim, doc := newFleet(t)
	s := NewServer(discard, "run-3")
	_ = s.WriteFleet(doc)
	_ = s.WriteFleet(sim.Step(doc))
	_ = s.WriteFleet(sim.Step(doc))

	var st Status
	if err := json.NewDecoder(get(t, s, "/status").Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Steps != 2 || st.Vessels != 3 || st.Timestamp != "1970-01-01T00:00:00.000000Z" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestVesselEndpoint(t *testing.T) {
	_, doc := newFleet(t)
	s := NewServer(discard, "run-4")
	_ = s.WriteFleet(doc)

	w := get(t, s, "/signalk/v1/api/vessels/boat-1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var v signalk.Vessel
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.MMSI != "123456789" || v.Name != "Boat 1" {
		t.Fatalf("unexpected vessel %+v", v)
	}

	if w := get(t, s, "/signalk/v1/api/vessels/boat-9"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDiscoveryAndIndex(t *testing.T) {
	_, doc := newFleet(t)
	s := NewServer(discard, "run-5")
	_ = s.WriteFleet(doc)

	w := get(t, s, "/signalk")
	if !strings.Contains(w.Body.String(), "/signalk/v1/api/") {
		t.Fatalf("discovery missing api endpoint: %s", w.Body.String())
	}

	body := get(t, s, "/").Body.String()
	for _, want := range []string{"run-5", "boat-1", "boat-3", "123456789"} {
		if !strings.Contains(body, want) {
			t.Fatalf("index missing %q", want)
		}
	}
	if strings.Index(body, "boat-1") > strings.Index(body, "boat-2") {
		t.Fatalf("vessels out of order")
	}
}

func TestStartStopsWithContext(t *testing.T) {
	var logs syncBuffer
	s := NewServer(logging.NewWithWriter(&logs, "info").With("run_id", "run-6"), "run-6")
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Start(ctx, "127.0.0.1:0") }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Start returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not stop")
	}
	if out := logs.String(); !strings.Contains(out, "fleet server listening") || !strings.Contains(out, "run_id=run-6") {
		t.Fatalf("expected listen line on the server logger, got %q", out)
	}
}

// syncBuffer guards a bytes.Buffer written from the server goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
