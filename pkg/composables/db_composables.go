package composables

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/ledgerdesk/pkg/constants"
	"github.com/iota-uz/ledgerdesk/pkg/repo"
)

var ErrNoPool = errors.New("no database pool found in context")

// WithTx pins the querier repositories use for ctx. Callers pass a pgx.Tx to
// group statements, and tests pass a fake.
func WithTx(ctx context.Context, tx repo.Tx) context.Context {
	return context.WithValue(ctx, constants.TxKey, tx)
}

// UseDB returns the querier pinned with WithTx, falling back to the pool.
func UseDB(ctx context.Context) (repo.Tx, error) {
	if tx, ok := ctx.Value(constants.TxKey).(repo.Tx); ok {
		return tx, nil
	}
	return UsePool(ctx)
}

func WithPool(ctx context.Context, pool *pgxpool.Pool) context.Context {
	return context.WithValue(ctx, constants.PoolKey, pool)
}

func UsePool(ctx context.Context) (*pgxpool.Pool, error) {
	if pool, ok := ctx.Value(constants.PoolKey).(*pgxpool.Pool); ok && pool != nil {
		return pool, nil
	}
	return nil, ErrNoPool
}
