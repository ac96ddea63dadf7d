package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"benchflow/blocks"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "List the available block kinds and their parameters",
	RunE: func(_ *cobra.Command, _ []string) error {
		reg := blocks.NewRegistry()
		for _, kind := range reg.Kinds() {
			b, err := reg.New(kind)
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s)\n", kind, b.Name())
			for _, p := range b.Parameters() {
				fmt.Printf("  %-18s %-10s default=%v\n", p.Name, p.Type, p.Default)
			}
		}
		return nil
	},
}
