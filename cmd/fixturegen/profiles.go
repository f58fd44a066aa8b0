package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"fixturegen/internal/config"
)

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles [name]",
		Short: "List built-in profiles or print one as YAML",
		Long:  "profiles lists the built-in profiles. Given a name it prints that profile as YAML, ready to be edited and passed to --config.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				p, ok := config.Lookup(args[0])
				if !ok {
					return fmt.Errorf("unknown profile %q", args[0])
				}
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(p); err != nil {
					return err
				}
				return enc.Close()
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tKIND\tDESCRIPTION")
			for _, name := range config.Names() {
				p, _ := config.Lookup(name)
				kind := "observations"
				if p.Vessels != nil {
					kind = "vessels"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", name, kind, p.Description)
			}
			return tw.Flush()
		},
	}
}
