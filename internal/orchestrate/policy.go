// Package orchestrate runs the engine fallback chain for a segment:
// engines in rank order, bounded retries on transient failures,
// straight fallback on everything else.
package orchestrate

import (
	"context"
	"time"
)

// RetryPolicy produces exponential backoff delays for transient
// engine failures. Timeouts never retry.
type RetryPolicy struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Delay returns the backoff before retry attempt "try" (1-based):
// base, 2*base, 4*base, ... capped at MaxDelay.
func (p RetryPolicy) Delay(try int) time.Duration {
	if try < 1 {
		try = 1
	}
	d := p.BaseDelay << (try - 1)
	if p.MaxDelay > 0 && (d > p.MaxDelay || d <= 0) {
		d = p.MaxDelay
	}
	return d
}

// Sleep blocks for d or until ctx is done, whichever comes first.
func (p RetryPolicy) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
