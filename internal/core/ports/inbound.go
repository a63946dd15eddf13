package ports

import (
	"context"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
)

// Predictor is the inbound contract for single- and multi-entity prediction.
type Predictor interface {
	PredictOne(ctx context.Context, entity domain.Entity) (*domain.ResultRecord, error)
	PredictMany(ctx context.Context, entities []domain.Entity) ([]domain.ResultRecord, error)
	Patterns() []domain.Pattern
}

// TermNormalizer turns a raw input line into a canonical entity. ok is false
// when the line should be skipped without error.
type TermNormalizer interface {
	Normalize(line string) (entity domain.Entity, ok bool, err error)
}
