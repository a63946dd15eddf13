package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
	"github.com/kirillkom/graph-pattern-predictor/internal/core/ports"
)

type SessionOptions struct {
	Endpoint         string
	MaxQueries       int
	ReductionVariant string
	FusionMethods    string
	Timeout          time.Duration
	Limits           domain.Limits
}

// SessionBuilder runs the one-off startup steps: load the latest model,
// reduce its patterns under the query budget and settle the query timeout.
type SessionBuilder struct {
	store      ports.ModelStore
	reducer    ports.PatternReducer
	calibrator ports.TimeoutCalibrator
}

func NewSessionBuilder(
	store ports.ModelStore,
	reducer ports.PatternReducer,
	calibrator ports.TimeoutCalibrator,
) *SessionBuilder {
	return &SessionBuilder{
		store:      store,
		reducer:    reducer,
		calibrator: calibrator,
	}
}

func (b *SessionBuilder) Build(ctx context.Context, opts SessionOptions) (domain.Session, error) {
	methods, err := domain.ParseFusionMethods(opts.FusionMethods)
	if err != nil {
		return domain.Session{}, err
	}

	artifact, err := b.store.FindLatest(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	model, err := b.store.Load(ctx, artifact)
	if err != nil {
		return domain.Session{}, fmt.Errorf("load model %s: %w", artifact, err)
	}
	if len(model.Patterns) == 0 {
		return domain.Session{}, domain.WrapError(domain.ErrNoTrainedModel, "load model",
			fmt.Errorf("%s holds no patterns", artifact))
	}

	patterns, err := b.reducer.Reduce(model.Patterns, opts.MaxQueries, model.GroundTruth, opts.ReductionVariant)
	if err != nil {
		return domain.Session{}, fmt.Errorf("reduce patterns: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout, err = b.calibrator.Calibrate(ctx)
		if err != nil {
			return domain.Session{}, fmt.Errorf("calibrate query timeout: %w", err)
		}
	}

	slog.Info("session_ready",
		"artifact", artifact,
		"patterns_loaded", len(model.Patterns),
		"patterns_used", len(patterns),
		"timeout_s", timeout.Seconds(),
		"fusion_methods", methods,
	)

	return domain.Session{
		Endpoint:      opts.Endpoint,
		ModelArtifact: artifact,
		Timeout:       timeout,
		Patterns:      patterns,
		Methods:       methods,
		Limits:        opts.Limits,
	}, nil
}
