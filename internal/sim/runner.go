package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"

	"fixturegen/internal/logging"
	"fixturegen/internal/signalk"
	"fixturegen/internal/telemetry"
)

// progressEvery controls how often the observation loop logs progress.
const progressEvery = 10000

// Stats summarizes an observation run.
type Stats struct {
	Ticks      int
	Emitted    int
	Suppressed int
}

// ObservationRunner streams every tick of a telemetry generator to a writer.
type ObservationRunner struct {
	gen     *telemetry.Generator
	limiter *rate.Limiter
}

// NewObservationRunner wraps gen.
func NewObservationRunner(gen *telemetry.Generator) *ObservationRunner {
	return &ObservationRunner{gen: gen}
}

// WithRateLimit caps emission at perSecond records per second. Zero or less
// removes the cap.
func (r *ObservationRunner) WithRateLimit(perSecond float64) *ObservationRunner {
	if perSecond <= 0 {
		r.limiter = nil
		return r
	}
	r.limiter = rate.NewLimiter(rate.Limit(perSecond), int(math.Ceil(perSecond)))
	return r
}

func (r *ObservationRunner) throttle(ctx context.Context, n int) error {
	if r.limiter == nil {
		return nil
	}
	for n > 0 {
		k := min(n, r.limiter.Burst())
		if err := r.limiter.WaitN(ctx, k); err != nil {
			return err
		}
		n -= k
	}
	return nil
}

// Run emits all ticks and stops early when ctx is done or a write fails.
func (r *ObservationRunner) Run(ctx context.Context, w RecordWriter) (Stats, error) {
	log := logging.FromContext(ctx)
	total := r.gen.Ticks()
	p := r.gen.Params()
	log.Info("starting observation run", "ticks", total, "devices", p.Devices, "start", p.Start.Format(telemetry.StartDateLayout))

	var st Stats
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			log.Info("observation run interrupted", "tick", i)
			return st, err
		}
		records, suppressed := r.gen.Tick(i)
		if err := r.throttle(ctx, len(records)); err != nil {
			return st, err
		}
		if err := writeRecords(w, records); err != nil {
			return st, fmt.Errorf("write tick %d: %w", i, err)
		}
		st.Ticks++
		st.Emitted += len(records)
		st.Suppressed += suppressed
		if st.Ticks%progressEvery == 0 {
			log.Debug("observation progress", "ticks", st.Ticks, "of", total, "emitted", st.Emitted)
		}
	}
	log.Info("observation run finished", "ticks", st.Ticks, "emitted", st.Emitted, "suppressed", st.Suppressed)
	return st, nil
}

// FleetRunner writes an initial fleet document followed by stepped ones.
type FleetRunner struct {
	sim      *signalk.Simulator
	doc      *signalk.Document
	steps    int
	interval time.Duration
}

// NewFleetRunner creates a runner stepping doc. With a positive interval the
// steps are paced by a ticker, and steps == 0 runs until the context is done.
func NewFleetRunner(sim *signalk.Simulator, doc *signalk.Document, steps int, interval time.Duration) *FleetRunner {
	return &FleetRunner{sim: sim, doc: doc, steps: steps, interval: interval}
}

// Document returns the current fleet state.
func (r *FleetRunner) Document() *signalk.Document {
	return r.doc
}

// Run writes the initial document and then one document per step. It
// returns how many steps were taken.
func (r *FleetRunner) Run(ctx context.Context, w FleetWriter) (int, error) {
	log := logging.FromContext(ctx)
	log.Info("starting fleet run", "vessels", len(r.doc.Vessels), "steps", r.steps, "interval", r.interval)

	if err := w.WriteFleet(r.doc); err != nil {
		return 0, fmt.Errorf("write initial fleet: %w", err)
	}

	if r.interval <= 0 {
		for i := 0; i < r.steps; i++ {
			if err := ctx.Err(); err != nil {
				return i, err
			}
			if err := w.WriteFleet(r.sim.Step(r.doc)); err != nil {
				return i, fmt.Errorf("write fleet step %d: %w", i+1, err)
			}
		}
		log.Info("fleet run finished", "steps", r.steps)
		return r.steps, nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	done := 0
	for r.steps == 0 || done < r.steps {
		select {
		case <-ticker.C:
			if err := w.WriteFleet(r.sim.Step(r.doc)); err != nil {
				return done, fmt.Errorf("write fleet step %d: %w", done+1, err)
			}
			done++
		case <-ctx.Done():
			log.Info("stopping fleet run", "steps", done)
			return done, ctx.Err()
		}
	}
	log.Info("fleet run finished", "steps", done)
	return done, nil
}
