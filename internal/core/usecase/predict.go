package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
	"github.com/kirillkom/graph-pattern-predictor/internal/core/ports"
)

const (
	modeSingle = "single"
	modeMulti  = "multi"
)

type PredictUseCase struct {
	session   domain.Session
	retriever ports.CandidateRetriever
	fuser     ports.Fuser
	observer  ports.PredictionObserver
}

func NewPredictUseCase(
	session domain.Session,
	retriever ports.CandidateRetriever,
	fuser ports.Fuser,
	observer ports.PredictionObserver,
) *PredictUseCase {
	return &PredictUseCase{
		session:   session,
		retriever: retriever,
		fuser:     fuser,
		observer:  observer,
	}
}

// Patterns returns a copy of the session's pattern sequence.
func (uc *PredictUseCase) Patterns() []domain.Pattern {
	out := make([]domain.Pattern, len(uc.session.Patterns))
	copy(out, uc.session.Patterns)
	return out
}

func (uc *PredictUseCase) PredictOne(ctx context.Context, entity domain.Entity) (record *domain.ResultRecord, err error) {
	start := time.Now()
	defer func() { uc.observe(modeSingle, 1, start, err) }()

	candidates, err := uc.retriever.RetrieveOne(ctx, uc.session.Timeout, uc.session.Patterns, entity)
	if err != nil {
		return nil, wrapGatewayError("retrieve candidates", err)
	}
	return uc.bundle(entity, candidates)
}

// PredictMany returns one record per entity, in input order. Either every
// record is produced or none is.
func (uc *PredictUseCase) PredictMany(ctx context.Context, entities []domain.Entity) (records []domain.ResultRecord, err error) {
	start := time.Now()
	defer func() { uc.observe(modeMulti, len(entities), start, err) }()

	byEntity, err := uc.retriever.RetrieveMany(ctx, uc.session.Timeout, uc.session.Patterns, entities)
	if err != nil {
		return nil, wrapGatewayError("retrieve multi candidates", err)
	}

	records = make([]domain.ResultRecord, 0, len(entities))
	for _, entity := range entities {
		candidates, ok := byEntity[entity]
		if !ok {
			return nil, domain.WrapError(domain.ErrCandidateMisaligned, "retrieve multi candidates",
				fmt.Errorf("no candidates for %s", entity))
		}
		record, err := uc.bundle(entity, candidates)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

func (uc *PredictUseCase) bundle(entity domain.Entity, candidates domain.CandidateSet) (*domain.ResultRecord, error) {
	if len(candidates) != len(uc.session.Patterns) {
		return nil, domain.WrapError(domain.ErrCandidateMisaligned, "retrieve candidates",
			fmt.Errorf("entity=%s patterns=%d candidates=%d", entity, len(uc.session.Patterns), len(candidates)))
	}
	fused, err := uc.fuser.Fuse(uc.session.Patterns, candidates, uc.session.Methods)
	if err != nil {
		return nil, fmt.Errorf("fuse candidates: %w", err)
	}
	return BundleResult(uc.session.Patterns, entity, candidates, fused, uc.session.Limits)
}

func (uc *PredictUseCase) observe(mode string, entities int, start time.Time, err error) {
	if uc.observer == nil {
		return
	}
	uc.observer.ObservePrediction(mode, entities, time.Since(start), err)
}

func wrapGatewayError(operation string, err error) error {
	if domain.IsKind(err, domain.ErrGateway) || domain.IsKind(err, domain.ErrTemporary) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return domain.WrapError(domain.ErrGateway, operation, err)
}
