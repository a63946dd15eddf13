package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
)

func newStream(retriever *retrieverFake, tolerant bool, batchSize int, runs *runRecorderFake) *StreamUseCase {
	session := testSession()
	predictor := NewPredictUseCase(session, retriever, &fuserFake{}, nil)
	uc := NewStreamUseCase(session, NewNormalizer(resolverFake{}, tolerant), predictor, nil, nil, StreamOptions{BatchSize: batchSize})
	if runs != nil {
		uc.runs = runs
	}
	return uc
}

func TestStreamDeduplicatesWithinChunk(t *testing.T) {
	retriever := &retrieverFake{}
	sink := &sinkFake{}
	uc := newStream(retriever, false, 10, nil)

	progress, err := uc.Run(context.Background(), strings.NewReader("<http://x/E>\n<http://x/E>\n"), sink)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	if retriever.calls() != 1 || len(retriever.oneCalls) != 1 {
		t.Fatalf("expected exactly one single-entity gateway call, got one=%d many=%d", len(retriever.oneCalls), len(retriever.manyCalls))
	}
	if progress.Processed != 1 {
		t.Fatalf("expected processed=1, got %d", progress.Processed)
	}
}

func TestStreamUsesMultiDispatchForLargerBatches(t *testing.T) {
	retriever := &retrieverFake{}
	sink := &sinkFake{}
	uc := newStream(retriever, false, 3, nil)

	input := "<http://x/a>\n<http://x/b>\n<http://x/a>\n\n<http://x/c>\n<http://x/d>\n<http://x/d>\n<http://x/e>\n"
	progress, err := uc.Run(context.Background(), strings.NewReader(input), sink)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// chunks: [a b a] [_ c d] [d e]
	want := []domain.Entity{"<http://x/a>", "<http://x/b>", "<http://x/c>", "<http://x/d>", "<http://x/d>", "<http://x/e>"}
	if len(sink.records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(sink.records))
	}
	for i, record := range sink.records {
		if record.Entity != want[i] {
			t.Fatalf("record %d: expected %s, got %s", i, want[i], record.Entity)
		}
	}
	if len(retriever.manyCalls) != 3 || len(retriever.oneCalls) != 0 {
		t.Fatalf("expected 3 multi calls, got one=%d many=%d", len(retriever.oneCalls), len(retriever.manyCalls))
	}
	if progress.Processed != 6 {
		t.Fatalf("expected processed=6, got %d", progress.Processed)
	}
}

func TestStreamWithoutBatchingPredictsEveryLine(t *testing.T) {
	retriever := &retrieverFake{}
	sink := &sinkFake{}
	uc := newStream(retriever, false, 0, nil)

	_, err := uc.Run(context.Background(), strings.NewReader("<http://x/a>\n<http://x/a>\n\"lit\"@en\n"), sink)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(sink.records) != 3 || len(retriever.oneCalls) != 3 {
		t.Fatalf("expected 3 single predictions, got records=%d calls=%d", len(sink.records), len(retriever.oneCalls))
	}
}

func TestStreamStrictModeStopsOnMalformedLine(t *testing.T) {
	retriever := &retrieverFake{}
	sink := &sinkFake{}
	uc := newStream(retriever, false, 1, nil)

	_, err := uc.Run(context.Background(), strings.NewReader("<http://x/a>\nnot-a-term\n<http://x/b>\n"), sink)
	if !domain.IsKind(err, domain.ErrMalformedInputTerm) {
		t.Fatalf("expected ErrMalformedInputTerm, got %v", err)
	}
	if len(sink.records) != 1 || sink.records[0].Entity != "<http://x/a>" {
		t.Fatalf("expected only the first record before failure, got %v", sink.records)
	}
	if retriever.calls() != 1 {
		t.Fatalf("expected no gateway call after the malformed line, got %d calls", retriever.calls())
	}
}

func TestStreamStrictModeDropsWholeChunkOnMalformedLine(t *testing.T) {
	retriever := &retrieverFake{}
	sink := &sinkFake{}
	uc := newStream(retriever, false, 5, nil)

	_, err := uc.Run(context.Background(), strings.NewReader("<http://x/a>\nbroken\n"), sink)
	if !domain.IsKind(err, domain.ErrMalformedInputTerm) {
		t.Fatalf("expected ErrMalformedInputTerm, got %v", err)
	}
	if len(sink.records) != 0 || retriever.calls() != 0 {
		t.Fatalf("expected nothing emitted for the failing chunk")
	}
}

func TestStreamTolerantModeSkipsMalformedLines(t *testing.T) {
	sink := &sinkFake{}
	uc := newStream(&retrieverFake{}, true, 1, nil)

	progress, err := uc.Run(context.Background(), strings.NewReader("broken\n<http://x/a>\n"), sink)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(sink.records) != 1 || progress.Processed != 1 {
		t.Fatalf("expected one record, got %d (processed=%d)", len(sink.records), progress.Processed)
	}
}

func TestStreamGatewayFailureAbortsRun(t *testing.T) {
	runs := &runRecorderFake{}
	sink := &sinkFake{}
	uc := newStream(&retrieverFake{err: errors.New("endpoint down")}, false, 1, runs)

	_, err := uc.Run(context.Background(), strings.NewReader("<http://x/a>\n<http://x/b>\n"), sink)
	if !domain.IsKind(err, domain.ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
	if len(sink.records) != 0 {
		t.Fatalf("expected no records, got %d", len(sink.records))
	}
	if len(runs.started) != 1 || runs.finishErr == nil {
		t.Fatalf("expected run to be started and finished with error")
	}
}

func TestStreamRecordsRunProgress(t *testing.T) {
	runs := &runRecorderFake{}
	uc := newStream(&retrieverFake{}, false, 2, runs)

	_, err := uc.Run(context.Background(), strings.NewReader("<http://x/a>\n<http://x/b>\n<http://x/c>\n"), &sinkFake{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(runs.started) != 1 || runs.started[0].PatternCount != 2 {
		t.Fatalf("unexpected run start %+v", runs.started)
	}
	if len(runs.progress) != 2 || runs.progress[1] != 3 {
		t.Fatalf("expected progress [2 3], got %v", runs.progress)
	}
	if runs.finished != 3 || runs.finishErr != nil {
		t.Fatalf("expected clean finish with 3 processed, got %d err=%v", runs.finished, runs.finishErr)
	}
}

func TestStreamRunRecorderFailureDoesNotStopPrediction(t *testing.T) {
	runs := &runRecorderFake{startErr: errors.New("db down")}
	sink := &sinkFake{}
	uc := newStream(&retrieverFake{}, false, 1, runs)

	if _, err := uc.Run(context.Background(), strings.NewReader("<http://x/a>\n"), sink); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected prediction to continue without run log")
	}
}

func TestStreamSinkFailureIsReturned(t *testing.T) {
	sink := &sinkFake{err: errors.New("broken pipe")}
	uc := newStream(&retrieverFake{}, false, 1, nil)

	if _, err := uc.Run(context.Background(), strings.NewReader("<http://x/a>\n"), sink); err == nil {
		t.Fatalf("expected sink error")
	}
}
