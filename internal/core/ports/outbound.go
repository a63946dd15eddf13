package ports

import (
	"context"
	"time"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
)

// CandidateRetriever evaluates every pattern for the requested entities.
// Returned candidate sets always have one slot per pattern.
type CandidateRetriever interface {
	RetrieveOne(ctx context.Context, timeout time.Duration, patterns []domain.Pattern, entity domain.Entity) (domain.CandidateSet, error)
	RetrieveMany(ctx context.Context, timeout time.Duration, patterns []domain.Pattern, entities []domain.Entity) (map[domain.Entity]domain.CandidateSet, error)
}

// Fuser merges per-pattern candidates into ranked lists, one per method.
type Fuser interface {
	Fuse(patterns []domain.Pattern, candidates domain.CandidateSet, methods []domain.FusionMethod) (domain.FusionResult, error)
}

// ModelStore locates and loads persisted training artifacts.
type ModelStore interface {
	FindLatest(ctx context.Context) (string, error)
	Load(ctx context.Context, artifact string) (*domain.Model, error)
}

// TimeoutCalibrator measures a safe per-query timeout against the endpoint.
type TimeoutCalibrator interface {
	Calibrate(ctx context.Context) (time.Duration, error)
}

// PatternReducer shrinks the pattern set to at most maxQueries patterns.
type PatternReducer interface {
	Reduce(patterns []domain.Pattern, maxQueries int, groundTruth []domain.ScoredPair, variant string) ([]domain.Pattern, error)
}

// IdentifierResolver checks whether an entity can be mapped to a compact form.
type IdentifierResolver interface {
	Curify(entity domain.Entity) (string, error)
}

// RecordSink receives finished records, one per entity.
type RecordSink interface {
	Emit(ctx context.Context, record domain.ResultRecord) error
}

// RunRecorder keeps bookkeeping about streaming runs.
type RunRecorder interface {
	StartRun(ctx context.Context, run domain.PredictionRun) error
	RecordProgress(ctx context.Context, runID string, processed int, elapsed time.Duration) error
	FinishRun(ctx context.Context, runID string, processed int, elapsed time.Duration, runErr error) error
}

// PredictionObserver collects prediction metrics.
type PredictionObserver interface {
	ObservePrediction(mode string, entities int, duration time.Duration, err error)
	ObserveProcessed(entities int)
}
