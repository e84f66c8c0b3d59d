package persistence

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/ledgerdesk/modules/reminders/domain/entities/reminder"
)

const (
	claimRemindersQuery = `
		SELECT ` + reminderColumns + `
		  FROM reminders
		 WHERE status = 'pending'
		   AND available_at <= $1
		   AND attempts < $2
		   AND (locked_at IS NULL OR locked_at < $3)
		   AND channel = ANY($5)
		 ORDER BY available_at, created_at
		 LIMIT $4
		 FOR UPDATE SKIP LOCKED`

	lockRemindersQuery = `UPDATE reminders SET locked_at = $1, attempts = attempts + 1 WHERE id = ANY($2)`

	ackReminderQuery = `
		UPDATE reminders
		   SET status = 'sent',
		       sent_at = now(),
		       locked_at = NULL,
		       last_error = NULL
		 WHERE id = $1 AND status = 'pending'`

	nackReminderQuery = `
		UPDATE reminders
		   SET locked_at = NULL,
		       last_error = $2,
		       available_at = $3
		 WHERE id = $1 AND status = 'pending'`

	deadReminderQuery = `
		UPDATE reminders
		   SET status = 'dead',
		       locked_at = NULL,
		       last_error = $2
		 WHERE id = $1 AND status = 'pending'`

	pendingCountQuery = `SELECT count(*) FROM reminders WHERE status = 'pending'`
	lockedCountQuery  = `SELECT count(*) FROM reminders WHERE status = 'pending' AND locked_at IS NOT NULL`

	purgeSentQuery = `DELETE FROM reminders WHERE status = 'sent' AND sent_at < $1`
	purgeDeadQuery = `DELETE FROM reminders WHERE status = 'dead' AND due_at < $1`
)

// ReminderQueue claims due reminders for delivery. Each call runs in its own
// transaction so a claimed row is released by the lock TTL if the process
// dies mid-delivery.
type ReminderQueue struct {
	pool *pgxpool.Pool
}

func NewReminderQueue(pool *pgxpool.Pool) *ReminderQueue {
	return &ReminderQueue{pool: pool}
}

func (q *ReminderQueue) Claim(
	ctx context.Context,
	now, lockCutoff time.Time,
	maxAttempts, limit int,
	channels []reminder.Channel,
) ([]*reminder.Reminder, error) {
	names := make([]string, len(channels))
	for i, ch := range channels {
		names[i] = string(ch)
	}

	tx, err := q.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, claimRemindersQuery, now, maxAttempts, lockCutoff, limit, pgtype.FlatArray[string](names))
	if err != nil {
		return nil, fmt.Errorf("reminders claim select: %w", err)
	}
	var items []*reminder.Reminder
	var ids []uuid.UUID
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("reminders claim scan: %w", err)
		}
		r.Attempts++
		r.LockedAt = &now
		items = append(items, r)
		ids = append(ids, r.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reminders claim rows: %w", err)
	}
	if len(ids) == 0 {
		return nil, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, lockRemindersQuery, now, pgtype.FlatArray[uuid.UUID](ids)); err != nil {
		return nil, fmt.Errorf("reminders claim update: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *ReminderQueue) Ack(ctx context.Context, id uuid.UUID) error {
	if _, err := q.pool.Exec(ctx, ackReminderQuery, id); err != nil {
		return fmt.Errorf("reminders ack: %w", err)
	}
	return nil
}

func (q *ReminderQueue) Nack(ctx context.Context, id uuid.UUID, lastError string, next time.Time) error {
	if _, err := q.pool.Exec(ctx, nackReminderQuery, id, lastError, next); err != nil {
		return fmt.Errorf("reminders nack: %w", err)
	}
	return nil
}

func (q *ReminderQueue) Dead(ctx context.Context, id uuid.UUID, lastError string) error {
	if _, err := q.pool.Exec(ctx, deadReminderQuery, id, lastError); err != nil {
		return fmt.Errorf("reminders dead: %w", err)
	}
	return nil
}

func (q *ReminderQueue) Depth(ctx context.Context) (int64, int64, error) {
	var pending, locked int64
	if err := q.pool.QueryRow(ctx, pendingCountQuery).Scan(&pending); err != nil {
		return 0, 0, fmt.Errorf("reminders pending count: %w", err)
	}
	if err := q.pool.QueryRow(ctx, lockedCountQuery).Scan(&locked); err != nil {
		return 0, 0, fmt.Errorf("reminders locked count: %w", err)
	}
	return pending, locked, nil
}

// Purge deletes sent reminders older than sentBefore and dead ones whose
// due date is older than deadBefore. A zero cutoff skips that state.
func (q *ReminderQueue) Purge(ctx context.Context, sentBefore, deadBefore time.Time) error {
	tx, err := q.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if !sentBefore.IsZero() {
		if _, err := tx.Exec(ctx, purgeSentQuery, sentBefore); err != nil {
			return fmt.Errorf("reminders purge sent: %w", err)
		}
	}
	if !deadBefore.IsZero() {
		if _, err := tx.Exec(ctx, purgeDeadQuery, deadBefore); err != nil {
			return fmt.Errorf("reminders purge dead: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// Leader holds a session advisory lock so only one server replica
// dispatches at a time.
type Leader struct {
	pool *pgxpool.Pool
	key  int64
}

func NewLeader(pool *pgxpool.Pool, name string) *Leader {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return &Leader{pool: pool, key: int64(h.Sum64())}
}

// TryAcquire returns a release func when the lock was taken.
func (l *Leader) TryAcquire(ctx context.Context) (func(), bool, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1::bigint)`, l.key).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, err
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}
	return func() {
		var released bool
		_ = conn.QueryRow(context.Background(), `SELECT pg_advisory_unlock($1::bigint)`, l.key).Scan(&released)
		conn.Release()
	}, true, nil
}
