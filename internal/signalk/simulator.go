package signalk

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"
)

// ErrInvalidFleet is returned by Build for unusable fleet parameters.
var ErrInvalidFleet = errors.New("invalid fleet parameters")

const (
	minutesPerDegree = 60
	maxSpeed         = 15
)

// Simulator builds and advances fleet documents.
type Simulator struct {
	rand *rand.Rand
	now  func() time.Time
}

// NewSimulator creates a simulator. A nil now defaults to time.Now.
func NewSimulator(rng *rand.Rand, now func() time.Time) *Simulator {
	if now == nil {
		now = time.Now
	}
	return &Simulator{rand: rng, now: now}
}

// Build places boat-1 on base and scatters boats 2..n within radiusNM
// nautical miles of it. All vessels start stationary.
func (s *Simulator) Build(n int, base Position, radiusNM float64) (*Document, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: fleet size must be at least 1, got %d", ErrInvalidFleet, n)
	}
	if radiusNM < 0 || math.IsNaN(radiusNM) {
		return nil, fmt.Errorf("%w: radius must be non-negative, got %v", ErrInvalidFleet, radiusNM)
	}
	if math.Abs(base.Latitude) >= 90 {
		return nil, fmt.Errorf("%w: base latitude %v must be within (-90, 90)", ErrInvalidFleet, base.Latitude)
	}

	doc := &Document{Context: Context, Vessels: make(map[string]*Vessel, n)}
	doc.Vessels[VesselKey(1)] = newVessel(1, BaseMMSI, base)

	halfLat := radiusNM / minutesPerDegree
	halfLon := halfLat / math.Cos(base.Latitude*math.Pi/180)
	for i := 2; i <= n; i++ {
		pos := Position{
			Latitude:  base.Latitude + (s.rand.Float64()*2-1)*halfLat,
			Longitude: base.Longitude + (s.rand.Float64()*2-1)*halfLon,
		}
		doc.Vessels[VesselKey(i)] = newVessel(i, BaseMMSI+i, pos)
	}
	return doc, nil
}

func newVessel(n, mmsi int, pos Position) *Vessel {
	return &Vessel{
		Name:       "Boat " + strconv.Itoa(n),
		MMSI:       strconv.Itoa(mmsi),
		Navigation: Navigation{Position: pos},
	}
}

// Step advances every vessel by one tick of dead reckoning, draws a new
// heading and speed for the next tick and stamps the document. The document
// is mutated in place and returned.
func (s *Simulator) Step(doc *Document) *Document {
	for _, key := range doc.Keys() {
		s.moveVessel(doc.Vessels[key])
	}
	doc.Timestamp = s.now().UTC().Format(TimestampLayout)
	return doc
}

// moveVessel uses a flat-earth approximation. The longitude term is scaled
// by the already updated latitude.
func (s *Simulator) moveVessel(v *Vessel) {
	pos := &v.Navigation.Position
	cog := v.CourseOverGroundTrue * math.Pi / 180
	dist := v.SpeedOverGround / minutesPerDegree

	pos.Latitude += dist * math.Cos(cog)
	pos.Longitude += dist * math.Sin(cog) / math.Cos(pos.Latitude*math.Pi/180)

	v.Heading.TrueHeading = s.rand.Float64() * 360
	v.SpeedOverGround = float64(s.rand.Intn(maxSpeed) + 1)
	v.CourseOverGroundTrue = v.Heading.TrueHeading
}
