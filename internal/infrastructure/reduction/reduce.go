package reduction

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
)

const (
	VariantTopScore       = "top_score"
	VariantPrecision      = "precision"
	VariantGreedyCoverage = "greedy_coverage"
)

func Variants() []string {
	return []string{VariantTopScore, VariantPrecision, VariantGreedyCoverage}
}

// Reducer picks at most maxQueries patterns. Selected patterns keep their
// original relative order.
type Reducer struct{}

func NewReducer() *Reducer { return &Reducer{} }

func (r *Reducer) Reduce(patterns []domain.Pattern, maxQueries int, groundTruth []domain.ScoredPair, variant string) ([]domain.Pattern, error) {
	if variant != "" && !knownVariant(variant) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "reduce patterns", fmt.Errorf("unknown clustering variant %q", variant))
	}
	if maxQueries <= 0 || len(patterns) <= maxQueries {
		return clonePatterns(patterns), nil
	}

	weights := pairWeights(groundTruth)
	if variant != "" {
		picked := selectIndexes(variant, patterns, maxQueries, weights)
		return pick(patterns, picked), nil
	}

	bestVariant := ""
	var best []int
	bestCoverage := -1.0
	for _, v := range Variants() {
		picked := selectIndexes(v, patterns, maxQueries, weights)
		if c := coverage(patterns, picked, weights); c > bestCoverage {
			bestVariant, best, bestCoverage = v, picked, c
		}
	}
	slog.Info("pattern_reduction_selected",
		"variant", bestVariant,
		"patterns", len(patterns),
		"max_queries", maxQueries,
		"covered_score", bestCoverage,
	)
	return pick(patterns, best), nil
}

func knownVariant(v string) bool {
	for _, known := range Variants() {
		if v == known {
			return true
		}
	}
	return false
}

func selectIndexes(variant string, patterns []domain.Pattern, n int, weights map[domain.Pair]float64) []int {
	switch variant {
	case VariantPrecision:
		return topBy(patterns, n, func(a, b domain.Pattern) bool {
			if a.Precision != b.Precision {
				return a.Precision > b.Precision
			}
			return a.Score > b.Score
		})
	case VariantGreedyCoverage:
		return greedyCoverage(patterns, n, weights)
	default:
		return topBy(patterns, n, func(a, b domain.Pattern) bool { return a.Score > b.Score })
	}
}

func topBy(patterns []domain.Pattern, n int, less func(a, b domain.Pattern) bool) []int {
	order := make([]int, len(patterns))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return less(patterns[order[a]], patterns[order[b]]) })
	return order[:n]
}

// greedyCoverage repeatedly takes the pattern that adds the most uncovered
// ground-truth weight. Once nothing adds coverage the rest is filled by score.
func greedyCoverage(patterns []domain.Pattern, n int, weights map[domain.Pair]float64) []int {
	covered := make(map[domain.Pair]bool)
	used := make([]bool, len(patterns))
	picked := make([]int, 0, n)

	for len(picked) < n {
		bestIdx, bestGain := -1, 0.0
		for i, p := range patterns {
			if used[i] {
				continue
			}
			gain := 0.0
			for _, m := range p.Matches {
				if !covered[m] {
					gain += weightOf(weights, m)
				}
			}
			if gain > bestGain || (gain > 0 && gain == bestGain && p.Score > patterns[bestIdx].Score) {
				bestIdx, bestGain = i, gain
			}
		}
		if bestIdx < 0 {
			break
		}
		used[bestIdx] = true
		picked = append(picked, bestIdx)
		for _, m := range patterns[bestIdx].Matches {
			covered[m] = true
		}
	}

	for _, i := range topBy(patterns, len(patterns), func(a, b domain.Pattern) bool { return a.Score > b.Score }) {
		if len(picked) == n {
			break
		}
		if !used[i] {
			used[i] = true
			picked = append(picked, i)
		}
	}
	return picked
}

func coverage(patterns []domain.Pattern, picked []int, weights map[domain.Pair]float64) float64 {
	covered := make(map[domain.Pair]bool)
	total := 0.0
	for _, i := range picked {
		for _, m := range patterns[i].Matches {
			if !covered[m] {
				covered[m] = true
				total += weightOf(weights, m)
			}
		}
	}
	return total
}

func pairWeights(groundTruth []domain.ScoredPair) map[domain.Pair]float64 {
	out := make(map[domain.Pair]float64, len(groundTruth))
	for _, gt := range groundTruth {
		out[gt.Pair] = gt.Score
	}
	return out
}

// Pairs without a recorded score count as 1.
func weightOf(weights map[domain.Pair]float64, pair domain.Pair) float64 {
	if w, ok := weights[pair]; ok {
		return w
	}
	return 1
}

func pick(patterns []domain.Pattern, idx []int) []domain.Pattern {
	sorted := append([]int(nil), idx...)
	sort.Ints(sorted)
	out := make([]domain.Pattern, 0, len(sorted))
	for _, i := range sorted {
		out = append(out, patterns[i])
	}
	return out
}

func clonePatterns(patterns []domain.Pattern) []domain.Pattern {
	return append([]domain.Pattern(nil), patterns...)
}
