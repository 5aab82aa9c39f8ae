// Package tx provides a transaction runner shared by the workflow
// services. A service wraps its primary mutation plus side-effect writes
// (notification rows) in RunInTx so a notification is never persisted for
// a mutation that failed, or vice versa.
package tx

import (
	"context"
	"database/sql"
	"time"

	dErrors "havenlink/pkg/domain-errors"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Runner executes a function atomically. The SQL implementation opens a
// transaction and threads it through context; stores pick it up via From.
// The noop implementation serves in-memory wiring, where per-store mutexes
// already make individual operations atomic.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

const defaultTxTimeout = 5 * time.Second

// SQLRunner runs functions inside a database/sql transaction.
type SQLRunner struct {
	db      *sql.DB
	timeout time.Duration
}

// NewSQLRunner creates a Runner backed by db.
func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	return nil
}

// Noop runs the function directly without transactional scope.
type Noop struct{}

func (Noop) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
