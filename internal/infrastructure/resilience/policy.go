package resilience

import "time"

type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// DefaultConfig retries transport failures twice and opens the breaker once
// half of at least 20 endpoint calls failed.
func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:        3,
		RetryInitialBackoff:     200 * time.Millisecond,
		RetryMaxBackoff:         2 * time.Second,
		RetryMultiplier:         2.0,
		BreakerEnabled:          true,
		BreakerMinRequests:      20,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// withDefaults fills every unset or out-of-range field from DefaultConfig.
// BreakerEnabled is taken as given.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	c.RetryMaxAttempts = positive(c.RetryMaxAttempts, def.RetryMaxAttempts)
	c.RetryInitialBackoff = positive(c.RetryInitialBackoff, def.RetryInitialBackoff)
	c.RetryMaxBackoff = max(positive(c.RetryMaxBackoff, def.RetryMaxBackoff), c.RetryInitialBackoff)
	if c.RetryMultiplier < 1 {
		c.RetryMultiplier = def.RetryMultiplier
	}
	c.BreakerMinRequests = positive(c.BreakerMinRequests, def.BreakerMinRequests)
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = def.BreakerFailureRatio
	}
	c.BreakerOpenTimeout = positive(c.BreakerOpenTimeout, def.BreakerOpenTimeout)
	c.BreakerHalfOpenMaxCalls = positive(c.BreakerHalfOpenMaxCalls, def.BreakerHalfOpenMaxCalls)
	return c
}

// backoff is the wait after the given failed attempt, starting at 1.
func (c Config) backoff(attempt int) time.Duration {
	wait := float64(c.RetryInitialBackoff)
	for i := 1; i < attempt; i++ {
		wait *= c.RetryMultiplier
		if wait >= float64(c.RetryMaxBackoff) {
			return c.RetryMaxBackoff
		}
	}
	return min(time.Duration(wait), c.RetryMaxBackoff)
}

func positive[T int | uint32 | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}
