package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/pkg/composables"
	"github.com/iota-uz/ledgerdesk/pkg/repo/repotest"
)

func clientRow(id uuid.UUID, name string, at time.Time) []any {
	return []any{
		id.String(),
		name,
		sql.NullString{String: "ops@foo.test", Valid: true},
		nil,
		sql.NullString{String: "01234567", Valid: true},
		sql.NullString{String: "1 High St", Valid: true},
		nil,
		sql.NullString{String: "London", Valid: true},
		sql.NullString{String: "N1 1AA", Valid: true},
		nil, nil,
		at, at,
	}
}

func withTx(tx *repotest.Tx) context.Context {
	return composables.WithTx(context.Background(), tx)
}

func TestClientRepository_GetByID(t *testing.T) {
	id := uuid.New()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tx := &repotest.Tx{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.Contains(t, sql, "FROM clients WHERE id = $1")
			require.Equal(t, id.String(), args[0])
			return &repotest.Rows{Data: [][]any{clientRow(id, "Foo Ltd", at)}}, nil
		},
	}

	c, err := NewClientRepository().GetByID(withTx(tx), id)
	require.NoError(t, err)
	require.Equal(t, id, c.ID)
	require.Equal(t, "Foo Ltd", c.Name)
	require.Equal(t, "ops@foo.test", c.Email)
	require.Empty(t, c.Phone)
	require.True(t, c.HasPostalAddress())
	require.Equal(t, at, c.CreatedAt)
}

func TestClientRepository_GetByID_NotFound(t *testing.T) {
	tx := &repotest.Tx{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return &repotest.Rows{}, nil
		},
	}
	_, err := NewClientRepository().GetByID(withTx(tx), uuid.New())
	require.ErrorIs(t, err, client.ErrNotFound)
}

func TestClientRepository_List_Filters(t *testing.T) {
	at := time.Now().UTC()
	tx := &repotest.Tx{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.Contains(t, sql, "WHERE (name ILIKE $1 OR email ILIKE $1 OR company_number ILIKE $1) AND company_number = $2")
			require.Contains(t, sql, "ORDER BY name ASC, created_at DESC")
			require.Contains(t, sql, "LIMIT 10 OFFSET 5")
			require.Equal(t, []any{"%foo%", "01234567"}, args)
			return &repotest.Rows{Data: [][]any{
				clientRow(uuid.New(), "Foo A", at),
				clientRow(uuid.New(), "Foo B", at),
			}}, nil
		},
	}

	out, err := NewClientRepository().List(withTx(tx), &client.FindParams{
		Query:         " foo ",
		CompanyNumber: "01234567",
		Limit:         10,
		Offset:        5,
		SortBy:        []string{"name", "-created_at", "bogus"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "Foo B", out[1].Name)
}

func TestClientRepository_List_DefaultOrder(t *testing.T) {
	tx := &repotest.Tx{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			require.NotContains(t, sql, "WHERE")
			require.Contains(t, sql, "ORDER BY created_at DESC")
			require.Empty(t, args)
			return &repotest.Rows{}, nil
		},
	}
	out, err := NewClientRepository().List(withTx(tx), nil)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestClientRepository_Count(t *testing.T) {
	tx := &repotest.Tx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "SELECT COUNT(*) FROM clients WHERE company_number = $1")
			return repotest.Row{Values: []any{int64(3)}}
		},
	}
	n, err := NewClientRepository().Count(withTx(tx), &client.FindParams{CompanyNumber: "01234567"})
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestClientRepository_Create_AssignsIDAndTimestamps(t *testing.T) {
	var gotArgs []any
	tx := &repotest.Tx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "INSERT INTO clients")
			gotArgs = args
			id, err := uuid.Parse(args[0].(string))
			require.NoError(t, err)
			return repotest.Row{Values: clientRow(id, args[1].(string), args[11].(time.Time))}
		},
	}

	created, err := NewClientRepository().Create(withTx(tx), &client.Client{Name: "Foo Ltd", Email: "ops@foo.test"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Len(t, gotArgs, 13)
	require.Equal(t, sql.NullString{}, gotArgs[3])
	require.Equal(t, sql.NullString{String: "ops@foo.test", Valid: true}, gotArgs[2])
	require.False(t, created.CreatedAt.IsZero())
}

func TestClientRepository_Update_NotFound(t *testing.T) {
	tx := &repotest.Tx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return repotest.Row{Err: pgx.ErrNoRows}
		},
	}
	_, err := NewClientRepository().Update(withTx(tx), &client.Client{ID: uuid.New(), Name: "x"})
	require.ErrorIs(t, err, client.ErrNotFound)
}

func TestClientRepository_Delete(t *testing.T) {
	affected := "DELETE 1"
	tx := &repotest.Tx{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			require.Equal(t, "DELETE FROM clients WHERE id = $1", sql)
			return pgconn.NewCommandTag(affected), nil
		},
	}
	repo := NewClientRepository()
	require.NoError(t, repo.Delete(withTx(tx), uuid.New()))

	affected = "DELETE 0"
	require.ErrorIs(t, repo.Delete(withTx(tx), uuid.New()), client.ErrNotFound)
}
