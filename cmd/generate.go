package cmd

import (
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/resilience-sim/resilience-sim/sim"
	"github.com/resilience-sim/resilience-sim/sim/graph"
)

// Generator model names.
const (
	ModelBA = "ba"
	ModelER = "er"
)

// subsystemGenerate seeds random graph generation.
const subsystemGenerate = "generate"

var (
	genModel  string
	genNodes  int
	genM      int
	genP      float64
	genOutput string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a random graph as an edge list",
	Long:  "Generate a Barabasi-Albert (--model ba) or Erdos-Renyi (--model er) graph. Output is written to stdout unless --output is set.",
	Run: func(cmd *cobra.Command, args []string) {
		s := seed
		if !cmd.Flags().Changed("seed") && configPath != "" {
			s = mustConfig(cmd).Seed
		}
		rng := sim.NewPartitionedRNG(sim.NewRunKey(s)).ForSubsystem(subsystemGenerate)
		g, err := generateGraph(genModel, genNodes, genM, genP, rng)
		if err != nil {
			logrus.Fatalf("Generation failed: %v", err)
		}
		if err := writeGraph(genOutput, g); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func generateGraph(model string, n, m int, p float64, rng *rand.Rand) (*graph.Graph, error) {
	var (
		g   *graph.Graph
		err error
	)
	switch model {
	case ModelBA:
		g, err = graph.BarabasiAlbert(n, m, rng)
		if g != nil {
			g.SetName(fmt.Sprintf("ba_n%d_m%d", n, m))
		}
	case ModelER:
		g, err = graph.ErdosRenyi(n, p, rng)
		if g != nil {
			g.SetName(fmt.Sprintf("er_n%d_p%g", n, p))
		}
	default:
		return nil, fmt.Errorf("unknown model %q; valid: %s, %s", model, ModelBA, ModelER)
	}
	return g, err
}

// writeGraph writes g as an edge list to path, or to stdout when path is empty.
func writeGraph(path string, g *graph.Graph) (err error) {
	var w io.Writer = os.Stdout
	if path != "" {
		f, cerr := os.Create(path)
		if cerr != nil {
			return errors.Wrapf(cerr, "creating %s", path)
		}
		defer closeFile(f, path, &err)
		w = f
	}
	if err := graph.Write(w, g); err != nil {
		return errors.Wrapf(err, "writing graph %s", g.Name())
	}
	return nil
}

// closeFile closes c and stores a close failure in *err unless an earlier
// error is already set. A written file is only complete once Close succeeds.
func closeFile(c io.Closer, path string, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = errors.Wrapf(cerr, "closing %s", path)
	}
}

func init() {
	generateCmd.Flags().StringVar(&genModel, "model", ModelBA, "Random graph model: ba, er")
	generateCmd.Flags().IntVar(&genNodes, "nodes", 100, "Number of nodes")
	generateCmd.Flags().IntVar(&genM, "m", 2, "Edges attached per new node (ba)")
	generateCmd.Flags().Float64Var(&genP, "p", 0.05, "Edge probability (er)")
	generateCmd.Flags().StringVar(&genOutput, "output", "", "Write the edge list here instead of stdout")

	rootCmd.AddCommand(generateCmd)
}
