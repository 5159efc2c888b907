package cmd

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/resilience-sim/resilience-sim/sim/ranking"
)

var (
	rankLossBatchPath string
	rankLossName      string
	rankLossTopK      int
	rankLossOutput    string
)

// RankLossReport is the rank-loss command output.
type RankLossReport struct {
	Loss   string         `json:"loss"`
	Shape  string         `json:"shape"`
	Output ranking.Output `json:"output"`
	// Grad is dLoss/dScores with the shape of the input scores.
	Grad [][]float64 `json:"grad"`
	// Mean ranking quality of the given scores over examples with at least
	// two valid candidates.
	NDCG       float64 `json:"ndcg"`
	MRR        float64 `json:"mrr"`
	KendallTau float64 `json:"kendall_tau"`
}

var rankLossCmd = &cobra.Command{
	Use:   "rank-loss",
	Short: "Compute a ranking loss and its gradient for a score batch",
	Long: "Read a JSON batch {\"scores\": [[...]], \"labels\": [[...]], \"mask\": [[...]]} and report " +
		"the configured ranking loss, per-example losses, the gradient and ranking quality metrics.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustConfig(cmd)
		rc := cfg.Ranking
		if rankLossName != "" {
			if !ranking.ValidLosses[rankLossName] {
				logrus.Fatalf("Unknown loss %q", rankLossName)
			}
			rc.Loss = rankLossName
		}
		b, err := readBatch(rankLossBatchPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		report, err := computeRankLoss(rc, b, rankLossTopK)
		if err != nil {
			logrus.Fatalf("Loss failed for batch %s: %v", b.DescribeShape(), err)
		}
		if report.Output.Unstable {
			logrus.Warnf("Non-finite values were masked out of %s", rankLossBatchPath)
		}
		if err := emitJSON(rankLossOutput, report); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func readBatch(path string) (ranking.Batch, error) {
	var b ranking.Batch
	data, err := os.ReadFile(path)
	if err != nil {
		return b, errors.Wrapf(err, "reading batch %s", path)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return b, errors.Wrapf(err, "decoding batch %s", path)
	}
	return b, nil
}

func computeRankLoss(cfg ranking.Config, b ranking.Batch, k int) (*RankLossReport, error) {
	loss := ranking.NewLoss(cfg)
	out, err := loss.Compute(b)
	if err != nil {
		return nil, err
	}
	report := &RankLossReport{Loss: loss.Name(), Shape: b.DescribeShape(), Output: out, Grad: out.Grad}

	n := 0
	for row := range b.Scores {
		scores, labels := validRow(b, row)
		if len(scores) < 2 {
			continue
		}
		report.NDCG += ranking.NDCG(scores, labels, k)
		report.MRR += ranking.MRR(scores, labels)
		report.KendallTau += ranking.KendallTau(scores, labels)
		n++
	}
	if n > 0 {
		report.NDCG /= float64(n)
		report.MRR /= float64(n)
		report.KendallTau /= float64(n)
	}
	return report, nil
}

// validRow returns the unmasked, finite entries of one batch row.
func validRow(b ranking.Batch, row int) ([]float64, []float64) {
	var scores, labels []float64
	for col, s := range b.Scores[row] {
		if b.Mask != nil && !b.Mask[row][col] {
			continue
		}
		if y := b.Labels[row][col]; math.IsNaN(s) || math.IsInf(s, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		scores = append(scores, s)
		labels = append(labels, b.Labels[row][col])
	}
	return scores, labels
}

func init() {
	lossNames := make([]string, 0, len(ranking.ValidLosses))
	for name := range ranking.ValidLosses {
		lossNames = append(lossNames, name)
	}
	sort.Strings(lossNames)
	rankLossCmd.Flags().StringVar(&rankLossBatchPath, "batch", "", "JSON file with scores, labels and an optional mask")
	rankLossCmd.Flags().StringVar(&rankLossName, "loss", "", "Override the configured loss: "+strings.Join(lossNames, ", "))
	rankLossCmd.Flags().IntVar(&rankLossTopK, "k", 0, "NDCG cutoff (0 = all candidates)")
	rankLossCmd.Flags().StringVar(&rankLossOutput, "output", "", "Write the report here instead of stdout")
	_ = rankLossCmd.MarkFlagRequired("batch")

	rootCmd.AddCommand(rankLossCmd)
}
