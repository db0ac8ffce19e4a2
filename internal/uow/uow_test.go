package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	postgres "github.com/venuepulse/venuepulse/internal/repository/postgres"
)

type fakeRunner struct {
	calls int
	errs  []error // error per attempt; nil means commit
	opts  []*pgx.TxOptions
}

func (f *fakeRunner) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx postgres.DB) error,
) error {
	f.calls++
	f.opts = append(f.opts, opts)

	if err := fn(ctx, nil); err != nil {
		return err
	}

	if f.calls <= len(f.errs) {
		return f.errs[f.calls-1]
	}
	return nil
}

func serializationFailure() error {
	return &pgconn.PgError{Code: "40001", Message: "could not serialize access due to concurrent update"}
}

func TestDoRetriesSerializationFailure(t *testing.T) {
	runner := &fakeRunner{errs: []error{serializationFailure(), serializationFailure(), nil}}
	u := NewUoW(runner)

	hookRuns := 0
	err := u.Do(context.Background(), func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error {
		after(func(ctx context.Context) { hookRuns++ })
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, runner.calls, "aborted attempts must re-run the transaction")
	assert.Equal(t, 1, hookRuns, "only the committing attempt runs its hooks")
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	runner := &fakeRunner{errs: []error{
		serializationFailure(), serializationFailure(), serializationFailure(),
	}}
	u := NewUoW(runner)

	hookRuns := 0
	err := u.Do(context.Background(), func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error {
		after(func(ctx context.Context) { hookRuns++ })
		return nil
	})

	require.Error(t, err)
	assert.True(t, postgres.IsRetryable(err))
	assert.Equal(t, maxTxAttempts, runner.calls)
	assert.Zero(t, hookRuns)
}

func TestDoDoesNotRetryOrdinaryErrors(t *testing.T) {
	boom := errors.New("boom")
	runner := &fakeRunner{}
	u := NewUoW(runner)

	err := u.Do(context.Background(), func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error {
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, runner.calls)
}

func TestDoUsesReadCommitted(t *testing.T) {
	runner := &fakeRunner{}
	u := NewUoW(runner)

	err := u.Do(context.Background(), func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error {
		return nil
	})

	require.NoError(t, err)
	require.Len(t, runner.opts, 1)
	require.NotNil(t, runner.opts[0])
	assert.Equal(t, pgx.ReadCommitted, runner.opts[0].IsoLevel)
}
