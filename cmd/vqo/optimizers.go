package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/vqo/internal/optimization"
)

func newOptimizersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "optimizers",
		Short: "List the optimizer names run accepts",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := optimization.Default()
			for _, name := range resolver.Names() {
				_, source, _ := resolver.Lookup(name)
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", name, source); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
