// internal/simulator/policy.go
package simulator

import (
	"context"
	"time"
)

// DefaultMaxAttempts bounds every polling loop
const DefaultMaxAttempts = 10

// RetryPolicy bounds the polling loops used to find existing items and to
// confirm writes. A zero Delay polls back to back.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy polls up to ten times without pausing
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// pause waits d unless ctx ends first
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
