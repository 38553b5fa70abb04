// Package batch runs independent work items on a bounded pool and returns
// exactly one outcome per item.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/idcard-reader/internal/common"
)

// MaxWorkers caps the pool regardless of available parallelism.
const MaxWorkers = 32

// DefaultWorkers returns min(4*GOMAXPROCS, MaxWorkers).
func DefaultWorkers() int {
	return min(4*runtime.GOMAXPROCS(0), MaxWorkers)
}

// Item is one unit of work. An empty ID is replaced with "#<index>".
type Item[T any] struct {
	ID    string
	Value T
}

// Outcome is the result of one item. Err is set when fn failed or panicked.
type Outcome[R any] struct {
	Value   R
	Err     error
	Elapsed time.Duration
}

type config struct {
	workers int
	logger  *slog.Logger
}

// Option configures Run.
type Option func(*config)

// WithWorkers sets the pool size; n <= 0 keeps the default.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the batch logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// Run calls fn for every item with at most the configured number running at
// once. Item failures never stop siblings: the returned map always has one
// entry per item. The only error is an up-front rejection of duplicate IDs.
func Run[T, R any](ctx context.Context, items []Item[T], fn func(ctx context.Context, it Item[T]) (R, error), opts ...Option) (map[string]Outcome[R], error) {
	cfg := config{workers: DefaultWorkers(), logger: slog.Default()}
	for _, o := range opts {
		o(&cfg)
	}

	ids := make([]string, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		id := it.ID
		if id == "" {
			id = fmt.Sprintf("#%d", i)
		}
		if _, dup := seen[id]; dup {
			return nil, common.NewAppError("DUPLICATE_ID", fmt.Sprintf("duplicate batch item id %q", id), common.ErrInvalidInput)
		}
		seen[id] = struct{}{}
		ids[i] = id
	}

	cfg.logger.Info("batch.start", "items", len(items), "workers", cfg.workers)
	start := time.Now()

	out := make(map[string]Outcome[R], len(items))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(cfg.workers)
	for i, it := range items {
		it.ID = ids[i]
		g.Go(func() error {
			res := runOne(ctx, it, fn)
			if res.Err != nil {
				cfg.logger.Warn("batch.item.failed", "id", it.ID, "error", res.Err)
			}
			mu.Lock()
			out[it.ID] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	cfg.logger.Info("batch.done", "items", len(items), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

// runOne isolates a panicking item so siblings keep running.
func runOne[T, R any](ctx context.Context, it Item[T], fn func(context.Context, Item[T]) (R, error)) (res Outcome[R]) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res = Outcome[R]{Err: fmt.Errorf("batch item %q panicked: %v", it.ID, p)}
		}
		res.Elapsed = time.Since(start)
	}()
	v, err := fn(ctx, it)
	return Outcome[R]{Value: v, Err: err}
}
