package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"fixturegen/internal/logging"
	"fixturegen/internal/sim"
)

func newReplayCmd(logLevel *string) *cobra.Command {
	var (
		input string
		speed float64
		sinks sinkOptions
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay an observation log file",
		Long:  "replay feeds observation records from a JSON lines file back into the configured sinks, paced by their datetime gaps.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return fmt.Errorf("input file required")
			}
			if err := sinks.validate(); err != nil {
				return err
			}
			cmd.SilenceUsage = true

			ctx, stop, runID := runContext(cmd, *logLevel, false)
			defer stop()
			log := logging.FromContext(ctx)

			writer, cleanup, err := newWriters(log, sinks, cmd.OutOrStdout(), runID, &sim.Banner{
				Title:  "Replay",
				Fields: [][2]string{{"Run ID", runID}, {"Input", input}, {"Speed", fmt.Sprintf("%gx", speed)}},
			})
			if err != nil {
				return err
			}
			defer cleanup()
			if writer == nil {
				return errNoSink
			}

			n, err := sim.ReplayLogFile(ctx, input, writer, speed)
			log.Info("replay finished", "input", input, "records", n)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Path to an observation log file")
	cmd.Flags().Float64Var(&speed, "speed", 1.0, "Playback speed multiplier (0 disables pacing)")
	_ = cmd.MarkFlagRequired("input")
	sinks.addFlags(cmd)
	return cmd
}
