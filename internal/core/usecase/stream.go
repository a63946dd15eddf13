package usecase

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
	"github.com/kirillkom/graph-pattern-predictor/internal/core/ports"
)

const maxLineBytes = 1 << 20

// Progress is the cross-chunk counter surfaced after every chunk.
type Progress struct {
	Processed int
	Elapsed   time.Duration
}

type StreamOptions struct {
	// BatchSize is the chunk size; values below one disable batching.
	BatchSize int
}

// StreamUseCase reads one term per line, predicts chunk by chunk and emits one
// record per distinct entity. Chunks are processed strictly one after another.
type StreamUseCase struct {
	session    domain.Session
	normalizer ports.TermNormalizer
	predictor  ports.Predictor
	runs       ports.RunRecorder
	observer   ports.PredictionObserver
	opts       StreamOptions
	now        func() time.Time
}

func NewStreamUseCase(
	session domain.Session,
	normalizer ports.TermNormalizer,
	predictor ports.Predictor,
	runs ports.RunRecorder,
	observer ports.PredictionObserver,
	opts StreamOptions,
) *StreamUseCase {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	return &StreamUseCase{
		session:    session,
		normalizer: normalizer,
		predictor:  predictor,
		runs:       runs,
		observer:   observer,
		opts:       opts,
		now:        time.Now,
	}
}

func (uc *StreamUseCase) Run(ctx context.Context, input io.Reader, sink ports.RecordSink) (progress Progress, err error) {
	start := uc.now()
	runID := uc.startRun(ctx, start)
	defer func() {
		progress.Elapsed = uc.now().Sub(start)
		uc.finishRun(ctx, runID, progress, err)
	}()

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lines := make([]string, 0, uc.opts.BatchSize)
	for {
		lines = lines[:0]
		for len(lines) < uc.opts.BatchSize && scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if len(lines) == 0 {
			break
		}

		batch, err := uc.normalizeChunk(lines)
		if err != nil {
			return progress, err
		}
		if err := uc.dispatch(ctx, batch, sink); err != nil {
			return progress, err
		}

		progress.Processed += len(batch)
		progress.Elapsed = uc.now().Sub(start)
		uc.reportProgress(ctx, runID, progress, len(batch))
	}
	if err := scanner.Err(); err != nil {
		return progress, domain.WrapError(domain.ErrInvalidInput, "read input", err)
	}
	return progress, nil
}

func (uc *StreamUseCase) normalizeChunk(lines []string) ([]domain.Entity, error) {
	batch := make([]domain.Entity, 0, len(lines))
	for _, line := range lines {
		entity, ok, err := uc.normalizer.Normalize(line)
		if err != nil {
			return nil, err
		}
		if ok {
			batch = append(batch, entity)
		}
	}
	return Dedupe(batch), nil
}

func (uc *StreamUseCase) dispatch(ctx context.Context, batch []domain.Entity, sink ports.RecordSink) error {
	switch len(batch) {
	case 0:
		return nil
	case 1:
		record, err := uc.predictor.PredictOne(ctx, batch[0])
		if err != nil {
			return err
		}
		return emit(ctx, sink, *record)
	default:
		records, err := uc.predictor.PredictMany(ctx, batch)
		if err != nil {
			return err
		}
		for _, record := range records {
			if err := emit(ctx, sink, record); err != nil {
				return err
			}
		}
		return nil
	}
}

func emit(ctx context.Context, sink ports.RecordSink, record domain.ResultRecord) error {
	if err := sink.Emit(ctx, record); err != nil {
		return fmt.Errorf("emit record for %s: %w", record.Entity, err)
	}
	slog.Info("predicted target candidates",
		"entity", record.Entity.String(),
		"count", record.OriginalResultLength,
	)
	return nil
}

func (uc *StreamUseCase) reportProgress(ctx context.Context, runID string, progress Progress, batchLen int) {
	slog.Info("processed entities",
		"processed", progress.Processed,
		"elapsed_s", progress.Elapsed.Seconds(),
	)
	if uc.observer != nil {
		uc.observer.ObserveProcessed(batchLen)
	}
	if uc.runs == nil || runID == "" {
		return
	}
	if err := uc.runs.RecordProgress(ctx, runID, progress.Processed, progress.Elapsed); err != nil {
		slog.Warn("run_progress_record_failed", "run_id", runID, "error", err)
	}
}

func (uc *StreamUseCase) startRun(ctx context.Context, start time.Time) string {
	if uc.runs == nil {
		return ""
	}
	run := domain.PredictionRun{
		ID:            uuid.NewString(),
		ModelArtifact: uc.session.ModelArtifact,
		Endpoint:      uc.session.Endpoint,
		PatternCount:  len(uc.session.Patterns),
		Timeout:       uc.session.Timeout,
		StartedAt:     start,
	}
	if err := uc.runs.StartRun(ctx, run); err != nil {
		slog.Warn("run_start_record_failed", "error", err)
		return ""
	}
	return run.ID
}

func (uc *StreamUseCase) finishRun(ctx context.Context, runID string, progress Progress, runErr error) {
	if uc.runs == nil || runID == "" {
		return
	}
	if err := uc.runs.FinishRun(context.WithoutCancel(ctx), runID, progress.Processed, progress.Elapsed, runErr); err != nil {
		slog.Warn("run_finish_record_failed", "run_id", runID, "error", err)
	}
}
