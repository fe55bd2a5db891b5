package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/agnesscodex/s4/internal/domain"
	"github.com/agnesscodex/s4/internal/storage"
	"github.com/agnesscodex/s4/pkg/retry"
)

// Options configure one sync pairing.
type Options struct {
	DryRun  bool
	Remove  bool
	Filters *Filters
	Exec    ExecOptions
}

// Engine runs list-diff-execute cycles between one source and one
// destination. It holds no cross-cycle state; every Run sees the stores
// fresh.
type Engine struct {
	src storage.ObjectStore
	dst storage.ObjectStore

	srcLister *Lister
	dstLister *Lister
	filters   *Filters
	planner   *Planner
	executor  *Executor

	dryRun bool
	log    zerolog.Logger
}

// New wires the cycle components for a source/destination pair.
func New(src, dst storage.ObjectStore, opts Options, log zerolog.Logger) *Engine {
	retryCfg := opts.Exec.Retry
	if retryCfg.MaxAttempts == 0 {
		retryCfg = retry.DefaultConfig()
	}

	return &Engine{
		src:       src,
		dst:       dst,
		srcLister: NewLister(src, retryCfg, opts.Exec.RequestTimeout),
		dstLister: NewLister(dst, retryCfg, opts.Exec.RequestTimeout),
		filters:   opts.Filters,
		planner:   NewPlanner(opts.Remove, src.Ref, dst.Ref),
		executor:  NewExecutor(src, dst, opts.Exec, log),
		dryRun:    opts.DryRun,
		log:       log,
	}
}

// Run performs one full cycle. The summary is returned even when tasks
// failed; the error then reports the aggregate so callers can exit
// non-zero without losing the counts.
func (e *Engine) Run(ctx context.Context) (*domain.CycleSummary, error) {
	started := time.Now()

	source, err := e.srcLister.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing source: %w", err)
	}
	dest, err := e.dstLister.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing destination: %w", err)
	}

	if e.filters != nil {
		source = e.filters.Apply(source)
	}

	plan := e.planner.Plan(source, dest)

	summary := &domain.CycleSummary{
		StartedAt: started,
		Creates:   len(plan.Creates),
		Updates:   len(plan.Updates),
		Deletes:   len(plan.Deletes),
		Skipped:   plan.Skipped,
	}

	e.log.Info().
		Str("source", e.src.Ref("")).
		Str("destination", e.dst.Ref("")).
		Int("create", summary.Creates).
		Int("update", summary.Updates).
		Int("delete", summary.Deletes).
		Int("skip", summary.Skipped).
		Msg("plan ready")

	if e.dryRun {
		e.logPlanDetails(plan)
		summary.Duration = time.Since(started)
		return summary, nil
	}

	summary.Executed = true
	results := e.executor.Execute(ctx, plan)
	for _, res := range results {
		if res.Failed() {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		if res.Task.Kind != domain.TaskDelete {
			summary.Bytes += res.Task.Size
		}
	}
	summary.Duration = time.Since(started)

	e.log.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Str("transferred", humanize.IBytes(uint64(summary.Bytes))).
		Dur("took", summary.Duration).
		Msg("cycle done")

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if summary.Failed > 0 {
		return summary, fmt.Errorf("%d of %d tasks failed", summary.Failed, plan.TaskCount())
	}
	return summary, nil
}

// logPlanDetails prints what a real run would do, one line per task.
func (e *Engine) logPlanDetails(plan *domain.SyncPlan) {
	for _, t := range plan.Creates {
		e.log.Info().Str("key", t.Key).Int64("size", t.Size).Msgf("would create %s", t.DestRef)
	}
	for _, t := range plan.Updates {
		e.log.Info().Str("key", t.Key).Int64("size", t.Size).Msgf("would update %s", t.DestRef)
	}
	for _, t := range plan.Deletes {
		e.log.Info().Str("key", t.Key).Msgf("would delete %s", t.DestRef)
	}
	if plan.Empty() {
		e.log.Info().Msg("nothing to do")
	}
}
