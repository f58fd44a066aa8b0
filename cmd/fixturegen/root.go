package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"fixturegen/internal/config"
	"fixturegen/internal/logging"
)

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:           "fixturegen",
		Short:         "Synthetic fixture generators",
		Long:          "fixturegen emits synthetic device telemetry and Signal K vessel fleets as JSON lines for downstream test suites.",
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(newObservationsCmd(&logLevel))
	root.AddCommand(newVesselsCmd(&logLevel))
	root.AddCommand(newReplayCmd(&logLevel))
	root.AddCommand(newProfilesCmd())
	root.AddCommand(newDashboardCmd())
	return root
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runContext sets up the logger and signal handling for one command run.
// Logs go to the command's stderr since stdout carries fixtures. A quiet run
// discards logs.
func runContext(cmd *cobra.Command, level string, quiet bool) (context.Context, context.CancelFunc, string) {
	runID := uuid.NewString()
	var out io.Writer = cmd.ErrOrStderr()
	if quiet {
		out = io.Discard
	}
	log := logging.NewWithWriter(out, level).With("run_id", runID, "command", cmd.Name())

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	return logging.NewContext(ctx, log), stop, runID
}

// loadProfile returns the profile named by --config or --profile, or nil
// when neither is set.
func loadProfile(path, name string) (*config.Profile, error) {
	switch {
	case path != "":
		return config.Load(path)
	case name != "":
		p, ok := config.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown profile %q (run `fixturegen profiles` to list them)", name)
		}
		return &p, nil
	}
	return nil, nil
}

func addProfileFlags(cmd *cobra.Command, path, name *string) {
	cmd.Flags().StringVar(path, "config", "", "Path to a YAML profile")
	cmd.Flags().StringVar(name, "profile", "", "Name of a built-in profile")
	cmd.MarkFlagsMutuallyExclusive("config", "profile")
}
