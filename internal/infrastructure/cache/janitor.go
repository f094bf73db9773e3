package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"yfmcp/internal/bootstrap/logging"
	"yfmcp/internal/errs"
)

type expiredClearer interface {
	ClearExpired(ctx context.Context) (int64, error)
}

// Janitor periodically removes expired rows so the file does not grow with
// entries nobody reads again.
type Janitor struct {
	store    expiredClearer
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewJanitor(store expiredClearer, interval time.Duration) *Janitor {
	return &Janitor{store: store, interval: interval}
}

// Start launches the sweep loop. A non-positive interval disables it.
func (j *Janitor) Start(ctx context.Context) {
	if j.interval <= 0 {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(logging.WithAttrs(ctx, slog.String("component", "infrastructure.cache.janitor")))
	j.cancel = cancel
	j.done = make(chan struct{})

	go j.loop(loopCtx, j.done)
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (j *Janitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel, j.done = nil, nil
	j.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errs.Wrap(ctx.Err(), "wait janitor stop")
	}
}

func (j *Janitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	removed, err := j.store.ClearExpired(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.Warn(ctx, "sweep expired entries failed", slog.Any("err", errs.Loggable(err)))
		return
	}
	if removed > 0 {
		logging.Info(ctx, "expired cache entries removed", slog.Int64("removed", removed))
	}
}
