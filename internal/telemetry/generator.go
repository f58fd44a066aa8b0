package telemetry

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

const (
	maxJitterMS      = 500
	suppressionSides = 10
)

// Generator simulates observation records for a fixed set of devices.
type Generator struct {
	params    Params
	unit      time.Duration
	rng       *rand.Rand
	deviceIDs []int
}

// NewGenerator validates p and creates a generator drawing from rng.
func NewGenerator(p Params, rng *rand.Rand) (*Generator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	unit, _ := p.Resolution.Unit()
	if p.PathPrefix == "" {
		p.PathPrefix = DefaultPathPrefix
	}
	ids := make([]int, p.Devices)
	for i := range ids {
		ids[i] = i + 1
	}
	return &Generator{params: p, unit: unit, rng: rng, deviceIDs: ids}, nil
}

// Params returns the validated parameters of the run.
func (g *Generator) Params() Params {
	return g.params
}

// Ticks returns the total number of ticks in the run.
func (g *Generator) Ticks() int {
	return g.params.Days * g.params.Resolution.PerDay() * g.params.PerUnit
}

// NominalTime returns the un-jittered instant of tick i.
func (g *Generator) NominalTime(i int) time.Time {
	rate := g.params.PerUnit
	whole := time.Duration(i/rate) * g.unit
	// i%rate*unit can overflow for very high rates.
	frac := time.Duration(float64(i%rate) * float64(g.unit) / float64(rate))
	return g.params.Start.Add(whole + frac)
}

// Tick produces the records of tick i in a freshly shuffled device order.
// It also returns how many records were suppressed.
func (g *Generator) Tick(i int) ([]Record, int) {
	g.rng.Shuffle(len(g.deviceIDs), func(a, b int) {
		g.deviceIDs[a], g.deviceIDs[b] = g.deviceIDs[b], g.deviceIDs[a]
	})

	nominal := g.NominalTime(i)
	records := make([]Record, 0, len(g.deviceIDs))
	suppressed := 0
	for _, id := range g.deviceIDs {
		jitter := time.Duration(g.rng.Intn(2*maxJitterMS+1)-maxJitterMS) * time.Millisecond
		values := Values{
			Ch1: round2(g.rng.Float64() * 100),
			Ch2: g.rng.Intn(201),
			Ch3: round2(g.rng.Float64() * 10),
		}
		drop := g.rng.Intn(suppressionSides)+1 == suppressionSides
		if g.params.Suppress && drop {
			suppressed++
			continue
		}
		records = append(records, Record{
			Path:     fmt.Sprintf("%s%d", g.params.PathPrefix, id),
			Datetime: Timestamp{nominal.Add(jitter).Round(time.Microsecond)},
			Values:   values,
		})
	}
	return records, suppressed
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
