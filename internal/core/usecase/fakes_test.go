package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
)

type retrieverFake struct {
	mu          sync.Mutex
	oneCalls    []domain.Entity
	manyCalls   [][]domain.Entity
	err         error
	short       bool
	targetsFor  func(domain.Entity, int) []domain.Entity
	lastTimeout time.Duration
}

func (f *retrieverFake) candidates(entity domain.Entity, n int) domain.CandidateSet {
	if f.short {
		n--
	}
	cs := domain.NewCandidateSet(n)
	if f.targetsFor != nil {
		for i := range cs {
			for _, t := range f.targetsFor(entity, i) {
				cs[i].Add(t)
			}
		}
	}
	return cs
}

func (f *retrieverFake) RetrieveOne(_ context.Context, timeout time.Duration, patterns []domain.Pattern, entity domain.Entity) (domain.CandidateSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.oneCalls = append(f.oneCalls, entity)
	f.lastTimeout = timeout
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates(entity, len(patterns)), nil
}

func (f *retrieverFake) RetrieveMany(_ context.Context, timeout time.Duration, patterns []domain.Pattern, entities []domain.Entity) (map[domain.Entity]domain.CandidateSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manyCalls = append(f.manyCalls, append([]domain.Entity(nil), entities...))
	f.lastTimeout = timeout
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[domain.Entity]domain.CandidateSet, len(entities))
	for _, e := range entities {
		out[e] = f.candidates(e, len(patterns))
	}
	return out, nil
}

func (f *retrieverFake) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.oneCalls) + len(f.manyCalls)
}

// fuserFake produces one list per requested method: every candidate target,
// scored by the number of patterns that suggest it.
type fuserFake struct {
	empty   bool
	methods []domain.FusionMethod
}

func (f *fuserFake) Fuse(_ []domain.Pattern, candidates domain.CandidateSet, methods []domain.FusionMethod) (domain.FusionResult, error) {
	f.methods = methods
	if f.empty {
		return domain.FusionResult{}, nil
	}
	counts := make(map[domain.Entity]float64)
	all := domain.TargetSet{}
	for _, set := range candidates {
		for t := range set {
			counts[t]++
			all.Add(t)
		}
	}
	ranked := make([]domain.ScoredTarget, 0, len(counts))
	for _, t := range all.Sorted() {
		ranked = append(ranked, domain.ScoredTarget{Target: t, Score: counts[t]})
	}
	out := make(domain.FusionResult, len(methods))
	for _, m := range methods {
		out[m] = ranked
	}
	return out, nil
}

type sinkFake struct {
	records []domain.ResultRecord
	err     error
}

func (s *sinkFake) Emit(_ context.Context, record domain.ResultRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

type runRecorderFake struct {
	started   []domain.PredictionRun
	progress  []int
	finished  int
	finishErr error
	startErr  error
}

func (f *runRecorderFake) StartRun(_ context.Context, run domain.PredictionRun) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, run)
	return nil
}

func (f *runRecorderFake) RecordProgress(_ context.Context, _ string, processed int, _ time.Duration) error {
	f.progress = append(f.progress, processed)
	return nil
}

func (f *runRecorderFake) FinishRun(_ context.Context, _ string, processed int, _ time.Duration, runErr error) error {
	f.finished = processed
	f.finishErr = runErr
	return nil
}

func testSession() domain.Session {
	return domain.Session{
		Endpoint: "http://localhost:8890/sparql",
		Timeout:  2 * time.Second,
		Patterns: twoPatterns(),
		Methods:  []domain.FusionMethod{domain.FusionBasic},
	}
}
