package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/copyleftdev/vqo/internal/config"
	"github.com/copyleftdev/vqo/internal/logging"
)

// cli holds the state shared by the subcommands.
type cli struct {
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "vqo",
		Short: "Variational quantum optimization of binary objectives",
		Long: `vqo minimizes a binary objective such as MaxCut by tuning an RYRZ
variational circuit with a classical optimizer on a simulated backend.

Defaults come from the VQO_* environment variables; flags override them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			c.cfg = cfg

			base, err := logging.NewLogger(&logging.Config{
				Level:  c.logLevel,
				Format: c.logFormat,
				Output: "stderr",
			})
			if err != nil {
				return err
			}
			c.logger = logging.NewZapLogger(base)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "text", "Log format (json, text)")

	root.AddCommand(newRunCmd(c), newQASMCmd(c), newOptimizersCmd(), newVersionCmd())
	return root
}
