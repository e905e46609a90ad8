package app

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// defaultRetryInterval is the first retry delay after a failed refresh
	// when no periodic refresh is configured.
	defaultRetryInterval = time.Minute
	maxBackoff           = 30 * time.Minute
)

// RefreshFunc performs one refresh pass.
type RefreshFunc func(context.Context) error

// StartSourceRefresh launches a background goroutine that calls refresh once
// immediately, then every interval. A zero interval refreshes only at startup
// and on demand. Failures back off exponentially up to maxBackoff. The
// returned trigger requests an immediate refresh and never blocks.
func StartSourceRefresh(ctx context.Context, refresh RefreshFunc, interval time.Duration, logger *log.Logger) (trigger func()) {
	requests := make(chan struct{}, 1)
	go func() {
		failures := 0
		for {
			if err := refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				logger.Warn("refresh failed", "failures", failures, "err", err)
			} else {
				failures = 0
			}

			var timer *time.Timer
			var wait <-chan time.Time
			if delay, ok := nextDelay(failures, interval); ok {
				timer = time.NewTimer(delay)
				wait = timer.C
			}
			select {
			case <-ctx.Done():
				stopTimer(timer)
				return
			case <-requests:
			case <-wait:
			}
			stopTimer(timer)
		}
	}()
	return func() {
		select {
		case requests <- struct{}{}:
		default:
		}
	}
}

// nextDelay returns how long to wait before the next automatic refresh.
// ok is false when the loop should only wake up on demand.
func nextDelay(failures int, interval time.Duration) (time.Duration, bool) {
	switch {
	case interval > 0:
		return calculateBackoff(failures, interval), true
	case failures > 0:
		return calculateBackoff(failures-1, defaultRetryInterval), true
	default:
		return 0, false
	}
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return min(base, maxBackoff)
	}
	delay := base
	for range failures {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
