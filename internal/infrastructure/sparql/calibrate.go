package sparql

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type CalibrationOptions struct {
	Queries    int
	Factor     float64
	MinTimeout time.Duration
	MaxTimeout time.Duration
}

// Calibrator derives a per-query timeout from the latency of a few probe
// queries: factor times the slowest probe, clamped to [MinTimeout, MaxTimeout].
type Calibrator struct {
	client *Client
	opts   CalibrationOptions
}

func NewCalibrator(client *Client, opts CalibrationOptions) *Calibrator {
	if opts.Queries <= 0 {
		opts.Queries = 10
	}
	if opts.Factor <= 0 {
		opts.Factor = 10
	}
	if opts.MinTimeout <= 0 {
		opts.MinTimeout = time.Second
	}
	if opts.MaxTimeout < opts.MinTimeout {
		opts.MaxTimeout = max(opts.MinTimeout, 60*time.Second)
	}
	return &Calibrator{client: client, opts: opts}
}

func (c *Calibrator) Calibrate(ctx context.Context) (time.Duration, error) {
	var slowest time.Duration
	for i := 0; i < c.opts.Queries; i++ {
		elapsed, err := c.probe(ctx)
		if err != nil {
			return 0, fmt.Errorf("calibration probe %d: %w", i+1, err)
		}
		slowest = max(slowest, elapsed)
	}

	timeout := time.Duration(float64(slowest) * c.opts.Factor)
	timeout = min(max(timeout, c.opts.MinTimeout), c.opts.MaxTimeout)

	slog.Info("query_timeout_calibrated",
		"endpoint", c.client.Endpoint(),
		"probes", c.opts.Queries,
		"slowest_ms", float64(slowest.Microseconds())/1000.0,
		"timeout_s", timeout.Seconds(),
	)
	return timeout, nil
}

func (c *Calibrator) probe(ctx context.Context) (time.Duration, error) {
	probeCtx, cancel := context.WithTimeout(ctx, c.opts.MaxTimeout)
	defer cancel()

	start := time.Now()
	if _, err := c.client.Select(probeCtx, probeQuery, 0); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
