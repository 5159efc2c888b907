package ranking

import (
	"math"
	"sort"
)

// rankByScore returns indices ordered by score descending, ties by index.
func rankByScore(xs []float64) []int {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] > xs[idx[b]] })
	return idx
}

// NDCG returns the normalised discounted cumulative gain of the ranking
// induced by scores, using labels as gains. k <= 0 means all candidates.
func NDCG(scores, labels []float64, k int) float64 {
	n := len(scores)
	if k <= 0 || k > n {
		k = n
	}
	if k == 0 {
		return 0
	}
	pred := rankByScore(scores)
	ideal := rankByScore(labels)
	dcg, idcg := 0.0, 0.0
	for i := 0; i < k; i++ {
		discount := math.Log2(float64(i) + 2)
		dcg += labels[pred[i]] / discount
		idcg += labels[ideal[i]] / discount
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// MRR returns the reciprocal rank, under scores, of the candidate with the
// highest label.
func MRR(scores, labels []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	best := rankByScore(labels)[0]
	for rank, i := range rankByScore(scores) {
		if i == best {
			return 1 / float64(rank+1)
		}
	}
	return 0
}

// PrecisionAtK returns the overlap between the top k by score and the top k
// by label, divided by k.
func PrecisionAtK(scores, labels []float64, k int) float64 {
	if k > len(scores) {
		k = len(scores)
	}
	if k <= 0 {
		return 0
	}
	truth := make(map[int]bool, k)
	for _, i := range rankByScore(labels)[:k] {
		truth[i] = true
	}
	hits := 0
	for _, i := range rankByScore(scores)[:k] {
		if truth[i] {
			hits++
		}
	}
	return float64(hits) / float64(k)
}

// KendallTau returns the tau-b rank correlation between scores and labels.
// Undefined cases (fewer than two items, or a constant input) return 0.
func KendallTau(scores, labels []float64) float64 {
	n := len(scores)
	concordant, discordant := 0.0, 0.0
	tiesX, tiesY := 0.0, 0.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := scores[i] - scores[j]
			dy := labels[i] - labels[j]
			switch {
			case dx == 0 && dy == 0:
			case dx == 0:
				tiesX++
			case dy == 0:
				tiesY++
			case (dx > 0) == (dy > 0):
				concordant++
			default:
				discordant++
			}
		}
	}
	denom := math.Sqrt((concordant + discordant + tiesX) * (concordant + discordant + tiesY))
	if denom == 0 {
		return 0
	}
	return (concordant - discordant) / denom
}
