package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/vqo/internal/varform"
)

func newQASMCmd(c *cli) *cobra.Command {
	var (
		numQubits    int
		depth        int
		entanglement string
		params       []float64
	)

	cmd := &cobra.Command{
		Use:   "qasm",
		Short: "Print an RYRZ circuit as OpenQASM 2.0",
		Long: `Builds the RYRZ circuit for the given parameters and prints it as
OpenQASM 2.0. Without --params every angle is zero.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("depth") {
				depth = c.cfg.Optimization.Depth
			}
			if !cmd.Flags().Changed("entanglement") {
				entanglement = c.cfg.Optimization.Entanglement
			}

			form, err := varform.NewRYRZ(varform.Config{
				NumQubits:    numQubits,
				Depth:        depth,
				Entanglement: entanglement,
			})
			if err != nil {
				return err
			}

			if params == nil {
				params = make([]float64, form.NumParameters())
			}
			circuit, err := form.ConstructCircuit(params)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), circuit.QASM())
			return err
		},
	}

	cmd.Flags().IntVar(&numQubits, "num-qubits", 2, "Number of qubits")
	cmd.Flags().IntVar(&depth, "depth", 0, "RYRZ depth (default $VQO_DEPTH)")
	cmd.Flags().StringVar(&entanglement, "entanglement", "", "full or linear (default $VQO_ENTANGLEMENT)")
	cmd.Flags().Float64SliceVar(&params, "params", nil, "Comma-separated rotation angles")
	return cmd
}
