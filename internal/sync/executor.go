// internal/sync/executor.go
package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/agnesscodex/s4/internal/domain"
	"github.com/agnesscodex/s4/internal/errs"
	"github.com/agnesscodex/s4/internal/storage"
	"github.com/agnesscodex/s4/pkg/retry"
)

// ExecOptions bound the executor's concurrency and retry behavior.
type ExecOptions struct {
	Retry           retry.Config
	RequestTimeout  time.Duration
	Concurrency     int
	PartConcurrency int
	PartSize        int64
}

// Executor drains a plan's tasks with a bounded worker pool. Plans carry
// each key at most once, so no two workers ever write the same
// destination key.
type Executor struct {
	src storage.ObjectStore
	dst storage.ObjectStore

	retry           retry.Config
	timeout         time.Duration
	concurrency     int64
	partConcurrency int
	partSize        int64

	log zerolog.Logger
}

// NewExecutor builds an executor for one source/destination pair.
func NewExecutor(src, dst storage.ObjectStore, opts ExecOptions, log zerolog.Logger) *Executor {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.PartConcurrency <= 0 {
		opts.PartConcurrency = 4
	}
	if opts.PartSize <= 0 {
		opts.PartSize = 8 << 20
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}

	return &Executor{
		src:             src,
		dst:             dst,
		retry:           opts.Retry,
		timeout:         opts.RequestTimeout,
		concurrency:     int64(opts.Concurrency),
		partConcurrency: opts.PartConcurrency,
		partSize:        opts.PartSize,
		log:             log,
	}
}

// Execute runs every task in the plan. One task failing never stops the
// others; the returned results carry the per-task outcomes, sorted by
// key for stable reporting.
func (x *Executor) Execute(ctx context.Context, plan *domain.SyncPlan) []domain.TaskResult {
	tasks := plan.Tasks()
	if len(tasks) == 0 {
		return nil
	}

	resCh := make(chan domain.TaskResult, len(tasks))
	sem := semaphore.NewWeighted(x.concurrency)
	var wg sync.WaitGroup

	for _, task := range tasks {
		if err := sem.Acquire(ctx, 1); err != nil {
			resCh <- domain.TaskResult{Task: task, Err: err}
			continue
		}

		wg.Add(1)
		go func(t domain.Task) {
			defer wg.Done()
			defer sem.Release(1)

			start := time.Now()
			err := x.run(ctx, t)
			resCh <- domain.TaskResult{Task: t, Err: err, Duration: time.Since(start)}
		}(task)
	}

	wg.Wait()
	close(resCh)

	results := make([]domain.TaskResult, 0, len(tasks))
	for res := range resCh {
		if res.Err != nil {
			res.Error = res.Err.Error()
			x.log.Error().Err(res.Err).
				Str("key", res.Task.Key).
				Str("kind", string(res.Task.Kind)).
				Msg("task failed")
		} else {
			x.log.Debug().
				Str("key", res.Task.Key).
				Str("kind", string(res.Task.Kind)).
				Int64("size", res.Task.Size).
				Dur("took", res.Duration).
				Msg("task done")
		}
		results = append(results, res)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Task.Key < results[j].Task.Key
	})

	return results
}

func (x *Executor) run(ctx context.Context, t domain.Task) error {
	if t.Kind == domain.TaskDelete {
		return x.remove(ctx, t)
	}
	if t.Size > domain.MultipartThreshold {
		return x.transferMultipart(ctx, t)
	}
	return x.transferSingle(ctx, t)
}

// attempt applies the retry policy and the per-call timeout to one store
// operation, turning non-transient failures into permanent ones.
func (x *Executor) attempt(ctx context.Context, fn func(context.Context) error) error {
	return x.retry.Do(ctx, func() error {
		attemptCtx := ctx
		if x.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, x.timeout)
			defer cancel()
		}

		err := fn(attemptCtx)
		if err != nil && !storage.IsTransient(err) {
			return retry.Permanent(err)
		}
		return err
	})
}

func (x *Executor) remove(ctx context.Context, t domain.Task) error {
	err := x.attempt(ctx, func(c context.Context) error {
		return x.dst.Delete(c, t.Key)
	})
	if err != nil && !errors.Is(err, storage.ErrNotExist) {
		return &errs.TransferError{Key: t.Key, Op: "delete", Err: err}
	}
	return nil
}

func (x *Executor) transferSingle(ctx context.Context, t domain.Task) error {
	contentType := x.contentType(ctx, t.Key)

	err := x.attempt(ctx, func(c context.Context) error {
		r, err := x.src.Get(c, t.Key)
		if err != nil {
			return err
		}
		defer r.Close()
		return x.dst.Put(c, t.Key, r, t.Size, contentType)
	})
	if err != nil {
		return &errs.TransferError{Key: t.Key, Op: "put", Err: err}
	}
	return nil
}

// transferMultipart moves one large object through a chunked session:
// initiate, upload the parts with a bounded sub-pool, then complete.
// Each part re-reads its source range on retry. Any unrecoverable part
// failure aborts the session so no orphaned upload is left behind.
func (x *Executor) transferMultipart(ctx context.Context, t domain.Task) error {
	contentType := x.contentType(ctx, t.Key)
	partPlan := domain.NewPartPlan(t.Size, x.partSize)

	var uploadID string
	err := x.attempt(ctx, func(c context.Context) error {
		id, err := x.dst.InitiateMultipart(c, t.Key, contentType)
		uploadID = id
		return err
	})
	if err != nil {
		return &errs.TransferError{Key: t.Key, Op: "multipart", Err: err}
	}

	x.log.Debug().
		Str("key", t.Key).
		Int("parts", partPlan.PartCount).
		Int64("part_size", partPlan.PartSize).
		Msg("multipart session opened")

	parts := make([]storage.CompletedPart, partPlan.PartCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.partConcurrency)

	for _, pr := range partPlan.Ranges {
		pr := pr
		g.Go(func() error {
			err := x.attempt(gctx, func(c context.Context) error {
				r, err := x.src.GetRange(c, t.Key, pr.Offset, pr.Length)
				if err != nil {
					return err
				}
				defer r.Close()

				etag, err := x.dst.UploadPart(c, t.Key, uploadID, pr, r)
				if err != nil {
					return err
				}
				parts[pr.Index-1] = storage.CompletedPart{Index: pr.Index, ETag: etag}
				return nil
			})
			if err != nil {
				return fmt.Errorf("part %d: %w", pr.Index, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		x.abort(t.Key, uploadID)
		return &errs.TransferError{Key: t.Key, Op: "multipart", Err: err}
	}

	err = x.attempt(ctx, func(c context.Context) error {
		return x.dst.CompleteMultipart(c, t.Key, uploadID, parts)
	})
	if err != nil {
		x.abort(t.Key, uploadID)
		return &errs.TransferError{Key: t.Key, Op: "multipart", Err: err}
	}

	return nil
}

// abort runs on a fresh context so a cancelled cycle still cleans up its
// open session.
func (x *Executor) abort(key, uploadID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := x.dst.AbortMultipart(ctx, key, uploadID); err != nil {
		x.log.Warn().Err(err).Str("key", key).Msg("could not abort multipart session")
	}
}

func (x *Executor) contentType(ctx context.Context, key string) string {
	typer, ok := x.src.(storage.ContentTyper)
	if !ok {
		return ""
	}
	value, err := typer.ContentType(ctx, key)
	if err != nil {
		x.log.Debug().Err(err).Str("key", key).Msg("content type detection failed")
		return ""
	}
	return value
}
