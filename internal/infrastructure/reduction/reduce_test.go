package reduction

import (
	"testing"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
)

func pair(s, t string) domain.Pair {
	return domain.Pair{Source: domain.Entity(s), Target: domain.Entity(t)}
}

// Four patterns: the two highest scoring ones cover the same pair, the
// precise one covers a different pair, the last covers two cheap pairs.
func fixture() ([]domain.Pattern, []domain.ScoredPair) {
	patterns := []domain.Pattern{
		{Score: 0.9, Precision: 0.2, Matches: []domain.Pair{pair("<a>", "<x>")}},
		{Score: 0.8, Precision: 0.3, Matches: []domain.Pair{pair("<a>", "<x>")}},
		{Score: 0.1, Precision: 0.9, Matches: []domain.Pair{pair("<b>", "<y>")}},
		{Score: 0.2, Precision: 0.1, Matches: []domain.Pair{pair("<c>", "<z>"), pair("<d>", "<w>")}},
	}
	groundTruth := []domain.ScoredPair{
		{Pair: pair("<a>", "<x>"), Score: 1},
		{Pair: pair("<b>", "<y>"), Score: 1},
		{Pair: pair("<c>", "<z>"), Score: 0.5},
		{Pair: pair("<d>", "<w>"), Score: 0.5},
	}
	return patterns, groundTruth
}

func scores(patterns []domain.Pattern) []float64 {
	out := make([]float64, len(patterns))
	for i, p := range patterns {
		out[i] = p.Score
	}
	return out
}

func assertScores(t *testing.T, got []domain.Pattern, want []float64) {
	t.Helper()
	s := scores(got)
	if len(s) != len(want) {
		t.Fatalf("picked %v, want %v", s, want)
	}
	for i := range want {
		if s[i] != want[i] {
			t.Fatalf("picked %v, want %v", s, want)
		}
	}
}

func TestReduceKeepsAllWhenWithinLimit(t *testing.T) {
	patterns, gt := fixture()
	for _, max := range []int{0, 4, 10} {
		got, err := NewReducer().Reduce(patterns, max, gt, VariantTopScore)
		if err != nil {
			t.Fatalf("Reduce(max=%d) error = %v", max, err)
		}
		assertScores(t, got, []float64{0.9, 0.8, 0.1, 0.2})
	}
}

func TestReduceVariantsKeepOriginalOrder(t *testing.T) {
	patterns, gt := fixture()
	cases := map[string][]float64{
		VariantTopScore:       {0.9, 0.8},
		VariantPrecision:      {0.8, 0.1},
		VariantGreedyCoverage: {0.9, 0.2},
	}
	for variant, want := range cases {
		t.Run(variant, func(t *testing.T) {
			got, err := NewReducer().Reduce(patterns, 2, gt, variant)
			if err != nil {
				t.Fatalf("Reduce() error = %v", err)
			}
			assertScores(t, got, want)
		})
	}
}

func TestReduceGreedyFillsByScoreOnceCoverageIsExhausted(t *testing.T) {
	patterns, gt := fixture()
	got, err := NewReducer().Reduce(patterns, 3, gt, VariantGreedyCoverage)
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}
	// coverage picks 0, 2 and 3; nothing is left to fill.
	assertScores(t, got, []float64{0.9, 0.1, 0.2})

	patterns = append(patterns, domain.Pattern{Score: 0.95})
	got, err = NewReducer().Reduce(patterns, 4, gt, VariantGreedyCoverage)
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}
	assertScores(t, got, []float64{0.9, 0.1, 0.2, 0.95})
}

func TestReduceWithoutVariantPicksBestCoverage(t *testing.T) {
	patterns, gt := fixture()
	got, err := NewReducer().Reduce(patterns, 2, gt, "")
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}
	// top_score covers 1.0; precision and greedy_coverage both cover 2.0, the first wins.
	assertScores(t, got, []float64{0.8, 0.1})
}

func TestReduceRejectsUnknownVariant(t *testing.T) {
	patterns, gt := fixture()
	_, err := NewReducer().Reduce(patterns, 2, gt, "kmeans")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
