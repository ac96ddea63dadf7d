package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "benchflow",
	Short: "Benchflow - bench automation sequence engine",
	Long: `Benchflow runs automation sequences defined in YAML or JSON files.

Sequences are ordered lists of blocks: instrument actions, variable and
data manipulation, and control flow. Simulated instruments are registered
so sequences run without hardware attached.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(blocksCmd)
}
