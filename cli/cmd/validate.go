package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"benchflow/blocks"
	"benchflow/runtime"
)

var validateCmd = &cobra.Command{
	Use:   "validate <sequence-file>",
	Short: "Validate a sequence file without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		log := newLogger()

		seq, err := runtime.LoadSequence(args[0], blocks.NewRegistry(), log)
		if err != nil {
			return fmt.Errorf("failed to load sequence: %w", err)
		}

		if violations := seq.Validate(); len(violations) > 0 {
			for _, v := range violations {
				fmt.Printf("  ✗ %s\n", v)
			}
			return fmt.Errorf("sequence %q is invalid", seq.Name)
		}

		fmt.Printf("✓ %s: %d blocks, valid\n", seq.Name, seq.Len())
		return nil
	},
}
