package usecase

import (
	"fmt"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
)

// BundleResult assembles the transport record for one entity.
//
// OriginalResultLength is the longest untruncated fused list and is computed
// before any limit is applied. Fused lists keep their rank order and only lose
// their tail; per-pattern candidates are sorted by canonical identifier and
// then capped.
func BundleResult(
	patterns []domain.Pattern,
	entity domain.Entity,
	candidates domain.CandidateSet,
	fused domain.FusionResult,
	limits domain.Limits,
) (*domain.ResultRecord, error) {
	if len(candidates) != len(patterns) {
		return nil, domain.WrapError(domain.ErrCandidateMisaligned, "bundle result",
			fmt.Errorf("entity=%s patterns=%d candidates=%d", entity, len(patterns), len(candidates)))
	}
	if len(fused) == 0 {
		return nil, domain.WrapError(domain.ErrFusionContractViolation, "bundle result",
			fmt.Errorf("entity=%s: fusion returned no methods", entity))
	}

	origLength := 0
	for _, ranked := range fused {
		if len(ranked) > origLength {
			origLength = len(ranked)
		}
	}

	fusedOut := make(domain.FusionResult, len(fused))
	for method, ranked := range fused {
		fusedOut[method] = trimRanked(ranked, limits.MaxResults)
	}

	perPattern := make([][]domain.Entity, len(candidates))
	for i, targets := range candidates {
		perPattern[i] = trimTargets(targets.Sorted(), limits.MaxCandidatesPerPattern)
	}

	return &domain.ResultRecord{
		Entity:               entity,
		OriginalResultLength: origLength,
		PerPatternCandidates: perPattern,
		FusedResults:         fusedOut,
	}, nil
}

func trimRanked(ranked []domain.ScoredTarget, limit int) []domain.ScoredTarget {
	if limit <= 0 || len(ranked) <= limit {
		limit = len(ranked)
	}
	out := make([]domain.ScoredTarget, limit)
	copy(out, ranked[:limit])
	return out
}

func trimTargets(targets []domain.Entity, limit int) []domain.Entity {
	if limit < 1 || len(targets) <= limit {
		return targets
	}
	return targets[:limit]
}
