package cache

import (
	"context"
	"log/slog"
	"sync"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/panjf2000/ants/v2"
	"github.com/redis/go-redis/v9"
)

const defaultInvalidationWorkers = 4

// Invalidator marks rendered views stale. Cached keys are dropped before
// Invalidate returns; announcements run on a bounded pool. Cache failures are
// logged and never reach the caller.
type Invalidator struct {
	rdb  *redis.Client
	pool *ants.Pool
	wg   sync.WaitGroup
}

// NewInvalidator creates an invalidator over rdb, which may be nil.
func NewInvalidator(rdb *redis.Client, workers int) (*Invalidator, error) {
	if workers <= 0 {
		workers = defaultInvalidationWorkers
	}
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &Invalidator{rdb: rdb, pool: pool}, nil
}

// Invalidate deletes the cached rendering of each path, so the next read
// after it returns misses, then announces the paths on InvalidationChannel
// in the background.
func (i *Invalidator) Invalidate(ctx context.Context, paths ...string) {
	if len(paths) == 0 {
		return
	}
	observability.ViewInvalidations.Add(float64(len(paths)))
	if i == nil || i.rdb == nil {
		return
	}

	keys := make([]string, len(paths))
	for n, p := range paths {
		keys[n] = ViewKey(p)
	}
	if err := i.rdb.Del(ctx, keys...).Err(); err != nil {
		observability.LogAsyncOperationError(ctx, "invalidate_views", err, map[string]any{"paths": paths})
	}

	// Detach from the request so a finished handler does not cancel the publish.
	bg := context.WithoutCancel(ctx)
	task := func() {
		defer i.wg.Done()
		i.announce(bg, paths)
	}

	i.wg.Add(1)
	if err := i.pool.Submit(task); err != nil {
		task()
	}
}

func (i *Invalidator) announce(ctx context.Context, paths []string) {
	pipe := i.rdb.Pipeline()
	for _, p := range paths {
		pipe.Publish(ctx, InvalidationChannel, p)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		observability.LogAsyncOperationError(ctx, "announce_invalidation", err, map[string]any{"paths": paths})
		return
	}
	middleware.Logger.DebugContext(ctx, "views invalidated", slog.Any("paths", paths))
}

// Wait blocks until all submitted invalidations have finished.
func (i *Invalidator) Wait() {
	i.wg.Wait()
}

// Close drains pending work and releases the pool.
func (i *Invalidator) Close() {
	i.wg.Wait()
	i.pool.Release()
}
