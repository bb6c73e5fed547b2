package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/copyleftdev/vqo/internal/backend"
	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
	"github.com/copyleftdev/vqo/internal/objective"
	"github.com/copyleftdev/vqo/internal/optimization"
	"github.com/copyleftdev/vqo/internal/varform"
	"github.com/copyleftdev/vqo/internal/vqo"
)

type runFlags struct {
	weights      string
	weightsFile  string
	optimizer    string
	params       string
	maxIter      int
	backend      string
	shots        int
	depth        int
	entanglement string
	entanglerMap string
	seed         uint64
	smooth       bool
	knots        int
	skipCheck    bool

	// Set when the flag was given, so it wins over --optimizer-params.
	maxIterSet bool
	seedSet    bool
}

// runOutput is printed as JSON on success.
type runOutput struct {
	Optimizer string        `json:"optimizer"`
	NumQubits int           `json:"num_qubits"`
	Result    *vqo.Result   `json:"result"`
	Solution  *vqo.Solution `json:"solution"`
}

func newRunCmd(c *cli) *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Optimize a MaxCut instance",
		Long: `Runs a variational MaxCut optimization over a weighted graph given as a
JSON adjacency matrix and prints the optimization result and the best cut.`,
		Example: `  vqo run --weights '[[0,1,1,0],[1,0,1,1],[1,1,0,1],[0,1,1,0]]'
  vqo run --weights-file graph.json --optimizer NelderMead --maxiter 200
  vqo run --weights-file graph.json --entangler-map '{"0":[1,3],"1":[2]}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.applyDefaults(cmd, c)
			return runMaxCut(cmd, c.logger, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.weights, "weights", "", "Adjacency matrix as JSON")
	fl.StringVar(&f.weightsFile, "weights-file", "", "File holding the adjacency matrix as JSON")
	fl.StringVar(&f.optimizer, "optimizer", "", "Optimizer name (default $VQO_OPTIMIZER)")
	fl.StringVar(&f.params, "optimizer-params", "", "Extra optimizer parameters as a JSON object")
	fl.IntVar(&f.maxIter, "maxiter", 0, "Objective evaluation budget (default $VQO_MAXITER)")
	fl.StringVar(&f.backend, "backend", "", "statevector_simulator or qasm_simulator (default $VQO_BACKEND)")
	fl.IntVar(&f.shots, "shots", 0, "Shots per circuit on the sampling backend (default $VQO_SHOTS)")
	fl.IntVar(&f.depth, "depth", 0, "RYRZ depth (default $VQO_DEPTH)")
	fl.StringVar(&f.entanglement, "entanglement", "", "full or linear (default $VQO_ENTANGLEMENT)")
	fl.StringVar(&f.entanglerMap, "entangler-map", "", `Explicit entangler map as JSON, e.g. '{"0":[1,2]}'; overrides --entanglement`)
	fl.Uint64Var(&f.seed, "seed", 0, "Seed for the optimizer and the sampler (default $VQO_SEED)")
	fl.BoolVar(&f.smooth, "smooth", false, "Optimize an interpolated layer schedule")
	fl.IntVar(&f.knots, "knots", 0, "Knots per rotation for --smooth")
	fl.BoolVar(&f.skipCheck, "skip-operator-check", false, "Skip the exhaustive cost operator check")
	cmd.MarkFlagsMutuallyExclusive("weights", "weights-file")
	cmd.MarkFlagsOneRequired("weights", "weights-file")

	return cmd
}

// applyDefaults fills every flag the user did not set from the
// configuration.
func (f *runFlags) applyDefaults(cmd *cobra.Command, c *cli) {
	opt := c.cfg.Optimization
	changed := cmd.Flags().Changed
	f.maxIterSet = changed("maxiter")
	f.seedSet = changed("seed")

	if !changed("optimizer") {
		f.optimizer = opt.Optimizer
	}
	if !changed("maxiter") {
		f.maxIter = opt.MaxIter
	}
	if !changed("backend") {
		f.backend = opt.Backend
	}
	if !changed("shots") {
		f.shots = opt.Shots
	}
	if !changed("depth") {
		f.depth = opt.Depth
	}
	if !changed("entanglement") {
		f.entanglement = opt.Entanglement
	}
	if !changed("seed") {
		f.seed = opt.Seed
	}
}

func runMaxCut(cmd *cobra.Command, logger *zap.Logger, f *runFlags) error {
	raw := []byte(f.weights)
	if f.weightsFile != "" {
		var err error
		if raw, err = os.ReadFile(f.weightsFile); err != nil {
			return fmt.Errorf("failed to read weights: %w", err)
		}
	}
	var rows [][]float64
	if err := json.Unmarshal(raw, &rows); err != nil {
		return vqoerrors.Wrap(err, vqoerrors.KindContract, "weights must be a JSON matrix")
	}
	weights, err := objective.WeightsFromRows(rows)
	if err != nil {
		return err
	}
	n, _ := weights.Dims()

	var entanglerMap varform.EntanglerMap
	if f.entanglerMap != "" {
		var m any
		if err := json.Unmarshal([]byte(f.entanglerMap), &m); err != nil {
			return vqoerrors.Wrap(err, vqoerrors.KindContract, "invalid --entangler-map")
		}
		if entanglerMap, err = varform.ParseEntanglerMap(m, n); err != nil {
			return err
		}
	}

	params := optimization.Parameters{}
	if f.params != "" {
		if err := json.Unmarshal([]byte(f.params), &params); err != nil {
			return vqoerrors.Wrap(err, vqoerrors.KindConfiguration, "invalid --optimizer-params")
		}
		if params == nil {
			params = optimization.Parameters{}
		}
	}
	if _, ok := params["maxiter"]; !ok || f.maxIterSet {
		params["maxiter"] = f.maxIter
	}
	if _, ok := params["seed"]; !ok || f.seedSet {
		params["seed"] = f.seed
	}

	op, offset, err := objective.MaxCutOperator(weights)
	if err != nil {
		return err
	}

	v, err := vqo.New(objective.MaxCut(weights), f.optimizer, vqo.Options{
		OptimizerParameters: params,
		VarformDescription: varform.Description{
			Name:         "RYRZ",
			NumQubits:    n,
			Depth:        f.depth,
			Entanglement: f.entanglement,
			EntanglerMap: entanglerMap,
		},
		BackendDescription: backend.Description{Package: backend.PackageSimulator, Name: f.backend},
		ExecuteParameters:  backend.ExecuteParameters{Shots: f.shots},
		ProblemDescription: vqo.ProblemDescription{
			Offset:                 offset,
			DoNotCheckCostOperator: f.skipCheck,
			SmoothSchedule:         f.smooth,
			Knots:                  f.knots,
			CostOperator:           op,
		},
		BackendSeed: f.seed,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	res, err := v.Optimize(ctx)
	if err != nil {
		return err
	}
	sol, err := v.OptimalSolution(ctx, 0)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(runOutput{
		Optimizer: f.optimizer,
		NumQubits: n,
		Result:    res,
		Solution:  sol,
	})
}
