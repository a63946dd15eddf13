package fusion

import (
	"fmt"
	"sort"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
)

const defaultRRFK = 60

// Engine merges per-pattern target sets into one ranked list per method.
// Every method scores a target by accumulating a per-pattern weight over the
// patterns that suggested it.
type Engine struct {
	rrfK int
}

func NewEngine(rrfK int) *Engine {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}
	return &Engine{rrfK: rrfK}
}

func (e *Engine) Fuse(patterns []domain.Pattern, candidates domain.CandidateSet, methods []domain.FusionMethod) (domain.FusionResult, error) {
	if len(candidates) != len(patterns) {
		return nil, domain.WrapError(domain.ErrCandidateMisaligned, "fuse",
			fmt.Errorf("%d candidate sets for %d patterns", len(candidates), len(patterns)))
	}
	if len(methods) == 0 {
		methods = domain.AllFusionMethods()
	}

	out := make(domain.FusionResult, len(methods))
	for _, method := range methods {
		weights, err := e.weights(method, patterns)
		if err != nil {
			return nil, err
		}
		out[method] = rank(accumulate(candidates, weights))
	}
	return out, nil
}

func (e *Engine) weights(method domain.FusionMethod, patterns []domain.Pattern) ([]float64, error) {
	w := make([]float64, len(patterns))
	switch method {
	case domain.FusionBasic:
		for i, p := range patterns {
			w[i] = p.Score
		}
	case domain.FusionTargetOccs:
		for i := range patterns {
			w[i] = 1
		}
	case domain.FusionPrecisions:
		for i, p := range patterns {
			w[i] = p.Precision
		}
	case domain.FusionFMeasures:
		for i, p := range patterns {
			w[i] = p.F1()
		}
	case domain.FusionRRF:
		for i, r := range scoreRanks(patterns) {
			w[i] = 1.0 / float64(e.rrfK+r)
		}
	default:
		return nil, domain.WrapError(domain.ErrUnsupportedFusionMethod, "fuse", fmt.Errorf("%q", method))
	}
	return w, nil
}

func accumulate(candidates domain.CandidateSet, weights []float64) map[domain.Entity]float64 {
	acc := make(map[domain.Entity]float64)
	for i, targets := range candidates {
		for target := range targets {
			acc[target] += weights[i]
		}
	}
	return acc
}

func rank(acc map[domain.Entity]float64) []domain.ScoredTarget {
	out := make([]domain.ScoredTarget, 0, len(acc))
	for target, score := range acc {
		out = append(out, domain.ScoredTarget{Target: target, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// scoreRanks returns the 1-based rank of every pattern by descending score;
// equal scores keep pattern order.
func scoreRanks(patterns []domain.Pattern) []int {
	order := make([]int, len(patterns))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return patterns[order[a]].Score > patterns[order[b]].Score
	})
	ranks := make([]int, len(patterns))
	for r, idx := range order {
		ranks[idx] = r + 1
	}
	return ranks
}
