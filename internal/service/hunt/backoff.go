package hunt

import (
	"math/rand"
	"time"
)

// BackoffConfig tunes the pause between classifier batches. The delay grows
// exponentially on failures and resets on success, with jitter to avoid
// thundering-herd retries against a rate-limited API.
type BackoffConfig struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
	Jitter  float64
}

// DefaultBackoff is a modest policy suited to per-minute API rate limits.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		Initial: time.Second,
		Max:     30 * time.Second,
		Factor:  2.0,
		Jitter:  0.2,
	}
}

type backoff struct {
	cfg     BackoffConfig
	current time.Duration
}

func newBackoff(cfg BackoffConfig) *backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = time.Second
	}
	if cfg.Max < cfg.Initial {
		cfg.Max = cfg.Initial
	}
	if cfg.Factor < 1 {
		cfg.Factor = 2.0
	}
	return &backoff{cfg: cfg, current: cfg.Initial}
}

// next returns the jittered delay to wait now and advances the schedule.
func (b *backoff) next() time.Duration {
	d := b.current

	grown := time.Duration(float64(b.current) * b.cfg.Factor)
	if grown > b.cfg.Max {
		grown = b.cfg.Max
	}
	b.current = grown

	if b.cfg.Jitter > 0 {
		spread := float64(d) * b.cfg.Jitter
		d += time.Duration((rand.Float64()*2 - 1) * spread)
		if d < 0 {
			d = 0
		}
	}
	return d
}

// reset returns the schedule to its initial delay after a success.
func (b *backoff) reset() {
	b.current = b.cfg.Initial
}
