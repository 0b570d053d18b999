package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// reaper is the facade's background sweep task. It is owned exclusively by
// the Cache that created it: the Cache holds the cancel func and the
// errgroup.Group, and calls sweepFn (a closure over the Cache's own lock)
// at every tick. The reaper holds no reference back to the Cache beyond
// that closure, so it cannot outlive being cancelled.
type reaper struct {
	cancel context.CancelFunc
	group  *errgroup.Group
}

// startReaper launches a single supervised goroutine that ticks every
// interval and invokes sweep at each tick, stopping as soon as ctx is
// cancelled. A panic inside sweep is recovered and logged rather than
// propagated: this is a background task with no caller waiting on it, so
// there is nothing for a panic to usefully surface to.
func startReaper(interval time.Duration, sweep func(), logger *zap.Logger) *reaper {
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Warn("reaper sweep panicked, terminating quietly", zap.Any("recovered", r))
				err = nil
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				sweep()
			}
		}
	})

	return &reaper{cancel: cancel, group: group}
}

// stop cancels the reaper's context. The task terminates at its next
// observable suspension point (the ticker wait); stop does not block
// waiting for that to happen, so a foreground caller is never held up by
// a background sweep it merely asked to stop.
func (r *reaper) stop() {
	if r == nil {
		return
	}
	r.cancel()
}
