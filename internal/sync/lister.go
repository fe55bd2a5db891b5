package sync

import (
	"context"
	"sort"
	"time"

	"github.com/agnesscodex/s4/internal/domain"
	"github.com/agnesscodex/s4/internal/errs"
	"github.com/agnesscodex/s4/internal/storage"
	"github.com/agnesscodex/s4/pkg/retry"
)

// Lister produces the canonical, key-sorted listing of one store scope.
type Lister struct {
	store   storage.ObjectStore
	retry   retry.Config
	timeout time.Duration
}

// NewLister wraps a store with the retry policy and per-call timeout the
// listing should run under.
func NewLister(store storage.ObjectStore, policy retry.Config, timeout time.Duration) *Lister {
	return &Lister{store: store, retry: policy, timeout: timeout}
}

// List enumerates the scope and sorts the entries by key, byte-wise. An
// empty scope lists as empty. Transient failures are retried under the
// policy; once it is exhausted the whole operation fails, so a plan is
// never built on a partial listing.
func (l *Lister) List(ctx context.Context) ([]domain.ObjectEntry, error) {
	var entries []domain.ObjectEntry

	err := l.retry.Do(ctx, func() error {
		attemptCtx := ctx
		if l.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, l.timeout)
			defer cancel()
		}

		out, err := l.store.List(attemptCtx)
		if err != nil {
			if storage.IsTransient(err) {
				return err
			}
			return retry.Permanent(err)
		}
		entries = out
		return nil
	})
	if err != nil {
		return nil, &errs.ListError{Scope: l.store.Ref(""), Err: err}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})

	return entries, nil
}
