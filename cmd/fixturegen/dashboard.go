package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fixturegen/internal/dashboard"
	"fixturegen/internal/sim"
)

func newDashboardCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Render a Grafana dashboard for the GreptimeDB tables",
		Long: `dashboard renders a Grafana dashboard that charts the observation and
vessel tables written by --greptime. GREPTIMEDB_DATASOURCE_UID must name the
Grafana datasource. GREPTIMEDB_DATABASE, GREPTIMEDB_TABLE and
GREPTIMEDB_FLEET_TABLE override the defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := dashboard.Render(outDir, dashboardTables())
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "build", "Directory to write dashboards to")
	return cmd
}

func dashboardTables() dashboard.Tables {
	return dashboard.Tables{
		Database:    envOr("GREPTIMEDB_DATABASE", sim.DefaultGreptimeDatabase),
		RecordTable: envOr("GREPTIMEDB_TABLE", sim.DefaultRecordTable),
		FleetTable:  envOr("GREPTIMEDB_FLEET_TABLE", sim.DefaultFleetTable),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
