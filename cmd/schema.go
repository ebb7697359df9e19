package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect or create the sequences and counter tables of the mapped generators",
}

var schemaPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the DDL without connecting to the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := newApplication(cmd.Context(), appOptions{withoutStore: true})
		if err != nil {
			return err
		}
		defer app.Close()

		for _, stmt := range app.registry.Script() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s;\n", stmt)
		}
		return nil
	},
}

var schemaApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create the missing sequences and counter tables and report their stored values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := newApplication(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		statuses, err := app.registry.Structures(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range statuses {
			value := "-"
			if s.State != nil && s.State.Found {
				value = fmt.Sprint(s.State.Value)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-32s %-8s %-32s %s\n",
				s.Generator, s.Snapshot.Kind, s.Snapshot.PhysicalName, value)
		}
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaPrintCmd, schemaApplyCmd)
	rootCmd.AddCommand(schemaCmd)
}
