package app

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

const maxBackoff = 5 * time.Minute

// Refresher reloads shared state. It is called from the poller goroutine.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// StartPoller launches a background goroutine that refreshes at interval,
// backing off while refreshes fail. It returns immediately; the returned
// channel closes when the goroutine exits.
func StartPoller(ctx context.Context, r Refresher, interval time.Duration, logger *log.Logger) <-chan struct{} {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("poller")
	done := make(chan struct{})
	go func() {
		defer close(done)
		timer := time.NewTimer(interval)
		defer timer.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			if err := r.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				logger.Warn("refresh failed", "failures", failures, "err", err)
			} else {
				failures = 0
			}
			timer.Reset(calculateBackoff(failures, interval))
		}
	}()
	return done
}

// calculateBackoff doubles base per consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
