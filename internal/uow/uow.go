package uow

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	postgres "github.com/venuepulse/venuepulse/internal/repository/postgres"
)

// maxTxAttempts bounds retries of transactions aborted by serialization
// failures or deadlocks. The whole transaction re-runs, so fn must be
// safe to execute again after a full rollback.
const maxTxAttempts = 3

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	RunTx(ctx context.Context, opts *pgx.TxOptions, fn func(ctx context.Context, tx postgres.DB) error) error
}

// UoW represents a unit of work.
type UoW struct {
	store TxRunner
}

func NewUoW(store TxRunner) *UoW {
	return &UoW{store: store}
}

// Do runs fn inside a read-committed transaction. The mutations that come
// through here are single-row conditional upserts; read committed lets a
// write that blocked on a concurrent writer of the same row proceed once
// the lock clears, instead of aborting with a serialization failure.
// After a successful commit, it executes all after-commit hooks.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error,
) error {
	return u.DoWithOpts(ctx, &pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	}, fn)
}

// DoWithOpts runs fn inside a transaction with the given options,
// retrying up to maxTxAttempts times when the database aborts it with a
// retryable error (serialization failure, deadlock). Hooks registered by
// an aborted attempt are discarded; only the attempt that commits runs
// its hooks.
func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error,
) error {
	var err error

	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		var hooks []AfterCommit

		err = u.store.RunTx(ctx, opts, func(ctx context.Context, tx postgres.DB) error {
			return fn(ctx, tx, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
		if err == nil {
			for _, h := range hooks {
				h(ctx)
			}
			return nil
		}

		if !postgres.IsRetryable(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}

	return err
}
