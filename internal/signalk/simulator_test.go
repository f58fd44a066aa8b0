package signalk

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var sanFrancisco = Position{Latitude: 37.7749, Longitude: -122.4194}

func newTestSimulator(seed int64) *Simulator {
	fixed := time.Date(2024, 5, 1, 12, 30, 0, 123456000, time.UTC)
	return NewSimulator(rand.New(rand.NewSource(seed)), func() time.Time { return fixed })
}

func TestBuildFleet(t *testing.T) {
	sim := newTestSimulator(1)
	doc, err := sim.Build(5, sanFrancisco, 10)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if doc.Context != Context {
		t.Errorf("context = %s", doc.Context)
	}
	if doc.Timestamp != "" {
		t.Errorf("fresh document should carry no timestamp, got %s", doc.Timestamp)
	}
	want := []string{"boat-1", "boat-2", "boat-3", "boat-4", "boat-5"}
	if got := doc.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}

	b1 := doc.Vessels["boat-1"]
	if b1.Navigation.Position != sanFrancisco {
		t.Errorf("boat-1 position = %+v, want base", b1.Navigation.Position)
	}
	if b1.MMSI != "123456789" || b1.Name != "Boat 1" {
		t.Errorf("boat-1 identity = %s/%s", b1.Name, b1.MMSI)
	}

	halfLat := 10.0 / 60
	halfLon := halfLat / math.Cos(sanFrancisco.Latitude*math.Pi/180)
	for i, key := range want[1:] {
		v := doc.Vessels[key]
		if v.MMSI != []string{"123456791", "123456792", "123456793", "123456794"}[i] {
			t.Errorf("%s mmsi = %s", key, v.MMSI)
		}
		p := v.Navigation.Position
		if math.Abs(p.Latitude-sanFrancisco.Latitude) > halfLat || math.Abs(p.Longitude-sanFrancisco.Longitude) > halfLon {
			t.Errorf("%s at %+v outside radius envelope", key, p)
		}
		if v.SpeedOverGround != 0 || v.CourseOverGroundTrue != 0 || v.Heading.TrueHeading != 0 {
			t.Errorf("%s should start stationary: %+v", key, v)
		}
	}
}

func TestBuildRejectsInvalidFleet(t *testing.T) {
	sim := newTestSimulator(1)
	cases := []struct {
		n      int
		base   Position
		radius float64
	}{
		{0, sanFrancisco, 10},
		{3, sanFrancisco, -1},
		{3, Position{Latitude: 90}, 1},
	}
	for _, tc := range cases {
		if _, err := sim.Build(tc.n, tc.base, tc.radius); !errors.Is(err, ErrInvalidFleet) {
			t.Errorf("Build(%d, %+v, %v) err = %v, want ErrInvalidFleet", tc.n, tc.base, tc.radius, err)
		}
	}
}

func TestStepDeadReckoning(t *testing.T) {
	sim := newTestSimulator(2)
	doc := &Document{Context: Context, Vessels: map[string]*Vessel{
		"boat-1": {Navigation: Navigation{Position: Position{Latitude: 10, Longitude: 20}}, SpeedOverGround: 6, CourseOverGroundTrue: 90},
		"boat-2": {Navigation: Navigation{Position: Position{Latitude: 10, Longitude: 20}}, SpeedOverGround: 12, CourseOverGroundTrue: 0},
	}}

	out := sim.Step(doc)
	if out != doc {
		t.Fatalf("Step should return the same document")
	}

	east := doc.Vessels["boat-1"].Navigation.Position
	wantLat := 10 + 0.1*math.Cos(math.Pi/2)
	wantLon := 20 + 0.1*math.Sin(math.Pi/2)/math.Cos(wantLat*math.Pi/180)
	if math.Abs(east.Latitude-wantLat) > 1e-12 || math.Abs(east.Longitude-wantLon) > 1e-12 {
		t.Errorf("boat-1 moved to %+v, want (%v, %v)", east, wantLat, wantLon)
	}
	north := doc.Vessels["boat-2"].Navigation.Position
	if math.Abs(north.Latitude-10.2) > 1e-12 || north.Longitude != 20 {
		t.Errorf("boat-2 moved to %+v, want (10.2, 20)", north)
	}

	for key, v := range doc.Vessels {
		if v.Heading.TrueHeading < 0 || v.Heading.TrueHeading >= 360 {
			t.Errorf("%s heading %v out of [0,360)", key, v.Heading.TrueHeading)
		}
		if v.SpeedOverGround < 1 || v.SpeedOverGround > 15 || v.SpeedOverGround != math.Trunc(v.SpeedOverGround) {
			t.Errorf("%s speed %v not an integer in [1,15]", key, v.SpeedOverGround)
		}
		if v.CourseOverGroundTrue != v.Heading.TrueHeading {
			t.Errorf("%s course %v != heading %v", key, v.CourseOverGroundTrue, v.Heading.TrueHeading)
		}
	}
	if doc.Timestamp != "2024-05-01T12:30:00.123456Z" {
		t.Errorf("timestamp = %s", doc.Timestamp)
	}
	if ts, ok := doc.Time(); !ok || ts.Nanosecond() != 123456000 {
		t.Errorf("Time() = %v, %v", ts, ok)
	}
}

func TestStepStaysFinite(t *testing.T) {
	sim := newTestSimulator(3)
	doc, err := sim.Build(5, sanFrancisco, 10)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i := 0; i < 1000; i++ {
		sim.Step(doc)
	}
	for key, v := range doc.Vessels {
		p := v.Navigation.Position
		if math.IsNaN(p.Latitude) || math.IsInf(p.Latitude, 0) || math.IsNaN(p.Longitude) || math.IsInf(p.Longitude, 0) {
			t.Fatalf("%s has non-finite position %+v", key, p)
		}
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	sim := newTestSimulator(4)
	doc, _ := sim.Build(3, sanFrancisco, 5)
	sim.Step(doc)

	var buf bytes.Buffer
	if err := doc.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	line := buf.String()
	for _, field := range []string{`"@context"`, `"@timestamp"`, `"trueHeading"`, `"speedOverGround"`, `"courseOverGroundTrue"`, `"latitude"`} {
		if !strings.Contains(line, field) {
			t.Errorf("encoded document missing %s: %s", field, line)
		}
	}

	back, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(doc, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	sim.Step(back)
	if len(back.Vessels) != 3 {
		t.Fatalf("decoded document lost vessels")
	}
}

func TestDecodeRejectsMissingVessels(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"@context":"x"}`)); err == nil {
		t.Fatalf("expected error for document without vessels")
	}
	if _, err := Decode(strings.NewReader(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestInitialDocumentOmitsTimestamp(t *testing.T) {
	doc, _ := newTestSimulator(5).Build(1, sanFrancisco, 0)
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "@timestamp") {
		t.Fatalf("unexpected timestamp in %s", b)
	}
}

func TestKeysNaturalOrder(t *testing.T) {
	doc := &Document{Vessels: map[string]*Vessel{"boat-10": {}, "boat-2": {}, "boat-1": {}, "tender": {}}}
	want := []string{"boat-1", "boat-2", "boat-10", "tender"}
	if got := doc.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
}
