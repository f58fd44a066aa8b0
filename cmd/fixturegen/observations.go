package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"fixturegen/internal/config"
	"fixturegen/internal/logging"
	"fixturegen/internal/sim"
	"fixturegen/internal/telemetry"
)

type observationsOptions struct {
	seconds    bool
	noSuppress bool
	prefix     string
	seed       int64
	maxRate    float64
	configPath string
	profile    string
	sinks      sinkOptions
}

func newObservationsCmd(logLevel *string) *cobra.Command {
	var opts observationsOptions
	cmd := &cobra.Command{
		Use:   "observations <observations_per_minute> <number_of_devices> <number_of_days> <start_date>",
		Short: "Generate device telemetry records",
		Long: `observations emits one JSON record per device per tick. Each tick visits
every device once in a shuffled order, jitters the timestamp by up to half a
second and drops about one record in ten unless --no-suppress is set.

start_date is yyyy-mm-dd. With --seconds the rate is per second instead of per
minute. All four arguments may come from --config or --profile instead.`,
		Example: "  fixturegen observations 10 100 1 2023-01-11\n  fixturegen observations --profile gen-1000 --format none --greptime localhost:4001",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && (opts.configPath != "" || opts.profile != "") {
				return nil
			}
			return cobra.ExactArgs(4)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := loadProfile(opts.configPath, opts.profile)
			if err != nil {
				return err
			}
			params, seed, err := resolveObservations(cmd, opts, profile, args)
			if err != nil {
				return err
			}
			if err := opts.sinks.validate(); err != nil {
				return err
			}
			if opts.maxRate < 0 {
				return fmt.Errorf("--max-rate must not be negative")
			}
			cmd.SilenceUsage = true
			return runObservations(cmd, *logLevel, opts, params, seed)
		},
	}
	cmd.Flags().BoolVar(&opts.seconds, "seconds", false, "Treat the rate as observations per second")
	cmd.Flags().BoolVar(&opts.noSuppress, "no-suppress", false, "Emit every record instead of dropping about 10%")
	cmd.Flags().StringVar(&opts.prefix, "prefix", telemetry.DefaultPathPrefix, "Path prefix for device ids")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Random seed (0 picks one from the clock)")
	cmd.Flags().Float64Var(&opts.maxRate, "max-rate", 0, "Cap output at this many records per second (0 is unlimited)")
	addProfileFlags(cmd, &opts.configPath, &opts.profile)
	opts.sinks.addFlags(cmd)
	return cmd
}

// resolveObservations merges profile values, positional arguments and
// explicitly set flags, in that order of precedence.
func resolveObservations(cmd *cobra.Command, opts observationsOptions, profile *config.Profile, args []string) (telemetry.Params, int64, error) {
	var o config.Observations
	var seed int64
	if profile != nil {
		if profile.Observations == nil {
			return telemetry.Params{}, 0, fmt.Errorf("profile %q has no observations section", profile.Name)
		}
		o = *profile.Observations
		seed = profile.Seed
	}

	if len(args) == 4 {
		names := [3]string{"observations_per_minute", "number_of_devices", "number_of_days"}
		var nums [3]int
		for i, name := range names {
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return telemetry.Params{}, 0, fmt.Errorf("%s must be an integer, got %q: %w", name, args[i], telemetry.ErrInvalidParams)
			}
			nums[i] = n
		}
		o.PerUnit, o.Devices, o.Days, o.StartDate = nums[0], nums[1], nums[2], args[3]
	} else if !o.Complete() {
		return telemetry.Params{}, 0, fmt.Errorf("profile does not set rate, devices, days and start date: %w", telemetry.ErrInvalidParams)
	}

	start, err := telemetry.ParseStartDate(o.StartDate)
	if err != nil {
		return telemetry.Params{}, 0, err
	}

	p := telemetry.Params{
		PerUnit:    o.PerUnit,
		Devices:    o.Devices,
		Days:       o.Days,
		Start:      start,
		Resolution: telemetry.Resolution(o.Resolution),
		Suppress:   !o.DisableSuppression,
		PathPrefix: o.PathPrefix,
	}
	flags := cmd.Flags()
	if flags.Changed("seconds") || p.Resolution == "" {
		p.Resolution = telemetry.ResolutionMinute
		if opts.seconds {
			p.Resolution = telemetry.ResolutionSecond
		}
	}
	if flags.Changed("no-suppress") {
		p.Suppress = !opts.noSuppress
	}
	if flags.Changed("prefix") || p.PathPrefix == "" {
		p.PathPrefix = opts.prefix
	}
	if flags.Changed("seed") {
		seed = opts.seed
	}
	if err := p.Validate(); err != nil {
		return telemetry.Params{}, 0, err
	}
	return p, seed, nil
}

func runObservations(cmd *cobra.Command, logLevel string, opts observationsOptions, p telemetry.Params, seed int64) error {
	ctx, stop, runID := runContext(cmd, logLevel, false)
	defer stop()
	log := logging.FromContext(ctx)

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Info("observation parameters", "rate", p.PerUnit, "resolution", p.Resolution, "devices", p.Devices, "days", p.Days, "suppress", p.Suppress, "seed", seed)

	gen, err := telemetry.NewGenerator(p, rand.New(rand.NewSource(seed)))
	if err != nil {
		return err
	}

	banner := &sim.Banner{
		Title: "Observation run",
		Fields: [][2]string{
			{"Run ID", runID},
			{"Devices", strconv.Itoa(p.Devices)},
			{"Rate", fmt.Sprintf("%d per %s", p.PerUnit, p.Resolution)},
			{"Days", strconv.Itoa(p.Days)},
			{"Start", p.Start.Format(telemetry.StartDateLayout)},
			{"Suppression", strconv.FormatBool(p.Suppress)},
			{"Seed", strconv.FormatInt(seed, 10)},
		},
	}
	writer, cleanup, err := newWriters(log, opts.sinks, cmd.OutOrStdout(), runID, banner)
	if err != nil {
		return err
	}
	defer cleanup()
	if writer == nil {
		return errNoSink
	}

	_, err = sim.NewObservationRunner(gen).WithRateLimit(opts.maxRate).Run(ctx, writer)
	if errors.Is(err, context.Canceled) {
		log.Info("observation run stopped")
		return nil
	}
	return err
}
