package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ContextQuerier resolves the querier from the context on every call.
// Components built once with a single querier (the numerator) still join
// the caller's transaction through it.
type ContextQuerier struct {
	txm *TxManager
}

// ContextQuerier returns a querier bound to this manager.
func (m *TxManager) ContextQuerier() ContextQuerier {
	return ContextQuerier{txm: m}
}

// Exec implements Querier.
func (q ContextQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return q.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
}

// Query implements Querier.
func (q ContextQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return q.txm.GetQuerier(ctx).Query(ctx, sql, args...)
}

// QueryRow implements Querier.
func (q ContextQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return q.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...)
}

var _ Querier = ContextQuerier{}
