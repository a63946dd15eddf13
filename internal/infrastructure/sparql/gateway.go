package sparql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
)

const (
	QueryOK      = "ok"
	QueryTimeout = "timeout"
	QueryError   = "error"
)

// QueryObserver is told the outcome of every pattern query.
type QueryObserver interface {
	ObserveQuery(status string, duration time.Duration)
}

type GatewayOptions struct {
	// Parallelism bounds concurrent pattern queries per call.
	Parallelism int
	// ResultLimit caps rows per entity and pattern query; 0 means no LIMIT.
	ResultLimit int
	Observer    QueryObserver
}

// Gateway resolves candidate sets by evaluating every pattern against the
// endpoint. One query per pattern covers all entities of a call. A pattern
// query that runs into the per-query timeout contributes an empty set.
type Gateway struct {
	client *Client
	opts   GatewayOptions
}

func NewGateway(client *Client, opts GatewayOptions) *Gateway {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 8
	}
	return &Gateway{client: client, opts: opts}
}

func (g *Gateway) RetrieveOne(ctx context.Context, timeout time.Duration, patterns []domain.Pattern, entity domain.Entity) (domain.CandidateSet, error) {
	byEntity, err := g.RetrieveMany(ctx, timeout, patterns, []domain.Entity{entity})
	if err != nil {
		return nil, err
	}
	return byEntity[entity], nil
}

func (g *Gateway) RetrieveMany(ctx context.Context, timeout time.Duration, patterns []domain.Pattern, entities []domain.Entity) (map[domain.Entity]domain.CandidateSet, error) {
	out := make(map[domain.Entity]domain.CandidateSet, len(entities))
	// Endpoints may spell a bound literal differently from the input, so rows
	// are matched back by term identity rather than by string.
	byKey := make(map[string][]domain.Entity, len(entities))
	for _, e := range entities {
		if _, seen := out[e]; seen {
			continue
		}
		out[e] = domain.NewCandidateSet(len(patterns))
		key := e.MatchKey()
		byKey[key] = append(byKey[key], e)
	}
	if len(entities) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(g.opts.Parallelism)
	for i, pattern := range patterns {
		group.Go(func() error {
			rows, err := g.evaluate(groupCtx, timeout, pattern, entities)
			if err != nil {
				return fmt.Errorf("pattern %d: %w", i, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, r := range rows {
				for _, e := range byKey[r.source.MatchKey()] {
					out[e][i].Add(r.target)
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type row struct {
	source domain.Entity
	target domain.Entity
}

func (g *Gateway) evaluate(ctx context.Context, timeout time.Duration, pattern domain.Pattern, entities []domain.Entity) ([]row, error) {
	limit := 0
	if g.opts.ResultLimit > 0 {
		limit = g.opts.ResultLimit * len(entities)
	}
	query, err := BuildPatternQuery(pattern, entities, limit)
	if err != nil {
		return nil, err
	}

	queryCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := g.client.Select(queryCtx, query, timeout)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			g.observe(QueryTimeout, start)
			slog.Debug("pattern_query_timeout", "timeout_s", timeout.Seconds(), "entities", len(entities))
			return nil, nil
		}
		g.observe(QueryError, start)
		return nil, err
	}
	g.observe(QueryOK, start)

	rows := make([]row, 0, len(res.Results.Bindings))
	for _, binding := range res.Results.Bindings {
		target, ok := binding[varName(domain.TargetVar)].Term()
		if !ok {
			continue
		}
		source := entities[0]
		if len(entities) > 1 {
			source, ok = binding[varName(domain.SourceVar)].Term()
			if !ok {
				continue
			}
		}
		rows = append(rows, row{source: source, target: target})
	}
	return rows, nil
}

func (g *Gateway) observe(status string, start time.Time) {
	if g.opts.Observer != nil {
		g.opts.Observer.ObserveQuery(status, time.Since(start))
	}
}

func varName(v string) string {
	return v[1:]
}
