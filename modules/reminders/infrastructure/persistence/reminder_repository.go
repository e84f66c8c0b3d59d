package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/iota-uz/ledgerdesk/modules/reminders/domain/entities/reminder"
	"github.com/iota-uz/ledgerdesk/modules/reminders/infrastructure/persistence/models"
	"github.com/iota-uz/ledgerdesk/pkg/composables"
	"github.com/iota-uz/ledgerdesk/pkg/repo"
)

const (
	reminderColumns = `id, client_id, kind, channel, subject, body, due_at, status, attempts,
		last_error, available_at, locked_at, sent_at, created_at`

	selectRemindersQuery = `SELECT ` + reminderColumns + ` FROM reminders`

	insertReminderQuery = `
		INSERT INTO reminders (
			id, client_id, kind, channel, subject, body, due_at, status, attempts,
			last_error, available_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, NULL, $9, $10)
		ON CONFLICT (client_id, kind, channel, due_at) DO NOTHING
		RETURNING ` + reminderColumns

	deletePendingReminderQuery  = `DELETE FROM reminders WHERE id = $1 AND status = 'pending'`
	deletePendingForClientQuery = `DELETE FROM reminders WHERE client_id = $1 AND status = 'pending'`
)

type ReminderRepository struct{}

func NewReminderRepository() reminder.Repository {
	return &ReminderRepository{}
}

func (g *ReminderRepository) GetByID(ctx context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	out, err := g.query(ctx, selectRemindersQuery+" WHERE id = $1", id.String())
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, reminder.ErrNotFound
	}
	return out[0], nil
}

func (g *ReminderRepository) List(ctx context.Context, params *reminder.FindParams) ([]*reminder.Reminder, error) {
	if params == nil {
		params = &reminder.FindParams{}
	}
	var where []string
	var args []any
	if params.ClientID != uuid.Nil {
		args = append(args, params.ClientID.String())
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if params.Status != "" {
		args = append(args, string(params.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}
	q := repo.Join(
		selectRemindersQuery,
		clause,
		"ORDER BY due_at ASC, created_at ASC",
		repo.FormatLimitOffset(params.Limit, params.Offset),
	)
	return g.query(ctx, q, args...)
}

func (g *ReminderRepository) Create(ctx context.Context, r *reminder.Reminder) (*reminder.Reminder, error) {
	tx, err := composables.UseDB(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.AvailableAt.IsZero() {
		r.AvailableAt = r.DueAt
	}
	if r.Status == "" {
		r.Status = reminder.StatusPending
	}
	m := ToDBReminder(r)
	created, err := scanReminder(tx.QueryRow(ctx, insertReminderQuery,
		m.ID, m.ClientID, m.Kind, m.Channel, m.Subject, m.Body, m.DueAt, m.Status, m.AvailableAt, m.CreatedAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, reminder.ErrDuplicate
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create reminder")
	}
	return created, nil
}

// Delete removes a pending reminder. Sent and dead reminders stay as history.
func (g *ReminderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseDB(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	tag, err := tx.Exec(ctx, deletePendingReminderQuery, id.String())
	if err != nil {
		return errors.Wrap(err, "failed to delete reminder")
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := g.GetByID(ctx, id); err != nil {
		return err
	}
	return reminder.ErrNotPending
}

func (g *ReminderRepository) DeletePendingForClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	tx, err := composables.UseDB(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	tag, err := tx.Exec(ctx, deletePendingForClientQuery, clientID.String())
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete client reminders")
	}
	return tag.RowsAffected(), nil
}

func (g *ReminderRepository) query(ctx context.Context, query string, args ...any) ([]*reminder.Reminder, error) {
	tx, err := composables.UseDB(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query reminders")
	}
	defer rows.Close()

	var out []*reminder.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan reminder")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating reminders")
	}
	return out, nil
}

func scanReminder(row pgx.Row) (*reminder.Reminder, error) {
	var m models.Reminder
	if err := row.Scan(
		&m.ID,
		&m.ClientID,
		&m.Kind,
		&m.Channel,
		&m.Subject,
		&m.Body,
		&m.DueAt,
		&m.Status,
		&m.Attempts,
		&m.LastError,
		&m.AvailableAt,
		&m.LockedAt,
		&m.SentAt,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	return ToDomainReminder(&m)
}
