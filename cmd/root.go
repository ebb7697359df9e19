// Package cmd provides the command-line interface of the identifier generator
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var mappingFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "idgen",
	Short: "Identifier generator service backed by sequences, counter tables and redis.",
	Long: `idgen resolves the generator of every mapped property, creates the ` +
		`sequences and counter tables the generators need and hands out values ` +
		`over HTTP or from the command line.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&mappingFile, "mapping", "m", "",
		"mapping file; overrides IDGEN_MAPPING_FILE")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
