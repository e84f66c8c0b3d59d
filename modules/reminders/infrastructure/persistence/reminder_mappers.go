package persistence

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/iota-uz/ledgerdesk/modules/reminders/domain/entities/reminder"
	"github.com/iota-uz/ledgerdesk/modules/reminders/infrastructure/persistence/models"
)

func ToDomainReminder(m *models.Reminder) (*reminder.Reminder, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse reminder id")
	}
	clientID, err := uuid.Parse(m.ClientID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse client id")
	}
	return &reminder.Reminder{
		ID:          id,
		ClientID:    clientID,
		Kind:        reminder.Kind(m.Kind),
		Channel:     reminder.Channel(m.Channel),
		Subject:     m.Subject,
		Body:        m.Body,
		DueAt:       m.DueAt,
		Status:      reminder.Status(m.Status),
		Attempts:    m.Attempts,
		LastError:   m.LastError.String,
		AvailableAt: m.AvailableAt,
		LockedAt:    m.LockedAt,
		SentAt:      m.SentAt,
		CreatedAt:   m.CreatedAt,
	}, nil
}

func ToDBReminder(r *reminder.Reminder) *models.Reminder {
	return &models.Reminder{
		ID:          r.ID.String(),
		ClientID:    r.ClientID.String(),
		Kind:        string(r.Kind),
		Channel:     string(r.Channel),
		Subject:     r.Subject,
		Body:        r.Body,
		DueAt:       r.DueAt,
		Status:      string(r.Status),
		Attempts:    r.Attempts,
		LastError:   sql.NullString{String: r.LastError, Valid: r.LastError != ""},
		AvailableAt: r.AvailableAt,
		LockedAt:    r.LockedAt,
		SentAt:      r.SentAt,
		CreatedAt:   r.CreatedAt,
	}
}
