package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fixturegen/internal/admin"
	"fixturegen/internal/config"
	"fixturegen/internal/logging"
	"fixturegen/internal/signalk"
	"fixturegen/internal/sim"
)

// watchInterval paces --watch runs that set no interval.
const watchInterval = time.Second

type vesselsOptions struct {
	boats      int
	lat        float64
	lon        float64
	radiusNM   float64
	steps      int
	interval   time.Duration
	watch      bool
	listen     string
	seed       int64
	configPath string
	profile    string
	sinks      sinkOptions
}

// fleetPlan is a resolved vessels run.
type fleetPlan struct {
	boats    int
	base     signalk.Position
	radiusNM float64
	steps    int
	interval time.Duration
	seed     int64
}

func newVesselsCmd(logLevel *string) *cobra.Command {
	var opts vesselsOptions
	cmd := &cobra.Command{
		Use:   "vessels",
		Short: "Simulate a Signal K vessel fleet",
		Long: `vessels scatters boats around a base position and steps them by dead
reckoning. It prints the initial fleet document followed by one document per
step. With --interval the steps are paced in real time, and --steps 0 then runs
until interrupted. --watch shows the fleet in a terminal UI instead of stdout,
and --listen serves it in the Signal K REST layout under /signalk/v1/api/.
Both keep the final fleet available until interrupted.`,
		Example: "  fixturegen vessels --boats 5 --steps 3\n  fixturegen vessels --profile harbor --watch",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := loadProfile(opts.configPath, opts.profile)
			if err != nil {
				return err
			}
			plan, err := resolveVessels(cmd, opts, profile)
			if err != nil {
				return err
			}
			if opts.watch {
				opts.sinks.format = formatNone
				if plan.interval == 0 {
					plan.interval = watchInterval
				}
			}
			if err := opts.sinks.validate(); err != nil {
				return err
			}
			cmd.SilenceUsage = true
			return runVessels(cmd, *logLevel, opts.sinks, plan, opts.watch, opts.listen)
		},
	}
	cmd.Flags().IntVar(&opts.boats, "boats", 5, "Number of boats")
	cmd.Flags().Float64Var(&opts.lat, "lat", 37.7749, "Base latitude in degrees")
	cmd.Flags().Float64Var(&opts.lon, "lon", -122.4194, "Base longitude in degrees")
	cmd.Flags().Float64Var(&opts.radiusNM, "radius-nm", 10, "Scatter radius in nautical miles")
	cmd.Flags().IntVar(&opts.steps, "steps", 3, "Number of steps after the initial document")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Wall-clock pause between steps (e.g. 500ms, 2s)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Show the fleet in an interactive terminal UI")
	cmd.Flags().StringVar(&opts.listen, "listen", "", "Serve the live fleet over HTTP on this address, e.g. :3000")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Random seed (0 picks one from the clock)")
	addProfileFlags(cmd, &opts.configPath, &opts.profile)
	opts.sinks.addFlags(cmd)
	return cmd
}

// resolveVessels applies profile values and then explicitly set flags.
func resolveVessels(cmd *cobra.Command, opts vesselsOptions, profile *config.Profile) (fleetPlan, error) {
	plan := fleetPlan{
		boats:    opts.boats,
		base:     signalk.Position{Latitude: opts.lat, Longitude: opts.lon},
		radiusNM: opts.radiusNM,
		steps:    opts.steps,
		interval: opts.interval,
		seed:     opts.seed,
	}
	flags := cmd.Flags()
	if profile != nil {
		v := profile.Vessels
		if v == nil {
			return fleetPlan{}, fmt.Errorf("profile %q has no vessels section", profile.Name)
		}
		interval, err := v.IntervalDuration()
		if err != nil {
			return fleetPlan{}, err
		}
		if v.Boats != 0 && !flags.Changed("boats") {
			plan.boats = v.Boats
		}
		if (v.BaseLat != 0 || v.BaseLon != 0) && !flags.Changed("lat") && !flags.Changed("lon") {
			plan.base = signalk.Position{Latitude: v.BaseLat, Longitude: v.BaseLon}
		}
		if v.RadiusNM != 0 && !flags.Changed("radius-nm") {
			plan.radiusNM = v.RadiusNM
		}
		if v.Steps != 0 && !flags.Changed("steps") {
			plan.steps = v.Steps
		}
		if interval != 0 && !flags.Changed("interval") {
			plan.interval = interval
		}
		if profile.Seed != 0 && !flags.Changed("seed") {
			plan.seed = profile.Seed
		}
	}

	switch {
	case plan.steps < 0:
		return fleetPlan{}, fmt.Errorf("--steps must not be negative: %w", signalk.ErrInvalidFleet)
	case plan.interval < 0:
		return fleetPlan{}, fmt.Errorf("--interval must not be negative: %w", signalk.ErrInvalidFleet)
	}
	return plan, nil
}

func runVessels(cmd *cobra.Command, logLevel string, sinks sinkOptions, plan fleetPlan, watch bool, listen string) error {
	// The TUI owns the terminal while watching.
	ctx, stop, runID := runContext(cmd, logLevel, watch)
	defer stop()
	log := logging.FromContext(ctx)

	seed := plan.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	simulator := signalk.NewSimulator(rand.New(rand.NewSource(seed)), time.Now)
	doc, err := simulator.Build(plan.boats, plan.base, plan.radiusNM)
	if err != nil {
		return err
	}
	log.Info("fleet built", "boats", plan.boats, "lat", plan.base.Latitude, "lon", plan.base.Longitude, "radius_nm", plan.radiusNM, "seed", seed)

	banner := &sim.Banner{
		Title: "Fleet run",
		Fields: [][2]string{
			{"Run ID", runID},
			{"Boats", strconv.Itoa(plan.boats)},
			{"Base", fmt.Sprintf("%.4f, %.4f", plan.base.Latitude, plan.base.Longitude)},
			{"Radius", fmt.Sprintf("%g nm", plan.radiusNM)},
			{"Steps", strconv.Itoa(plan.steps)},
			{"Interval", plan.interval.String()},
			{"Seed", strconv.FormatInt(seed, 10)},
		},
	}
	base, cleanup, err := newWriters(log, sinks, cmd.OutOrStdout(), runID, banner)
	if err != nil {
		return err
	}
	defer cleanup()

	var writers []sim.FleetWriter
	if base != nil {
		writers = append(writers, base)
	}
	var tui *sim.TUIWriter
	if watch {
		tui = sim.NewTUIWriter(fmt.Sprintf("fixturegen fleet · %d boats · run %s", plan.boats, runID))
		defer tui.Close()
		writers = append(writers, tui)
	}
	var srv *admin.Server
	if listen != "" {
		srv = admin.NewServer(log, runID)
		writers = append(writers, srv)
	}

	var writer sim.FleetWriter
	switch len(writers) {
	case 0:
		return errNoSink
	case 1:
		writer = writers[0]
	default:
		writer = sim.NewMultiWriter(nil, writers)
	}

	// runCtx also ends when the user quits the TUI after the run finished.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	g, gctx := errgroup.WithContext(runCtx)
	if srv != nil {
		g.Go(func() error { return srv.Start(gctx, listen) })
	}
	g.Go(func() error {
		_, err := sim.NewFleetRunner(simulator, doc, plan.steps, plan.interval).Run(gctx, writer)
		if errors.Is(err, context.Canceled) {
			log.Info("fleet run stopped")
			return nil
		}
		if err == nil && tui != nil {
			// Keep the final fleet on screen until the user quits.
			tui.Finished()
			tui.Wait()
			cancelRun()
		}
		return err
	})
	return g.Wait()
}
