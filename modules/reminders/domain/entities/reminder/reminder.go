package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/ledgerdesk/pkg/serrors"
)

var (
	ErrNotFound       = serrors.NewError("REMINDER_NOT_FOUND", "reminder not found", "Reminders.Errors.NotFound")
	ErrDuplicate      = serrors.NewError("REMINDER_DUPLICATE", "reminder already scheduled", "Reminders.Errors.Duplicate")
	ErrNotPending     = serrors.NewError("REMINDER_NOT_PENDING", "only pending reminders can be cancelled", "Reminders.Errors.NotPending")
	ErrNoRecipient    = serrors.NewError("REMINDER_NO_RECIPIENT", "client has no address for this channel", "Reminders.Errors.NoRecipient")
	ErrChannelOff     = serrors.NewError("REMINDER_CHANNEL_DISABLED", "delivery channel is disabled", "Reminders.Errors.ChannelDisabled")
	ErrInvalidChannel = serrors.NewError("REMINDER_INVALID_CHANNEL", "unknown delivery channel", "Reminders.Errors.InvalidChannel")
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPost  Channel = "post"
)

func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelPost
}

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusDead    Status = "dead"
)

// Kind tells seeded deadline reminders apart from ones scheduled by hand.
type Kind string

const (
	KindCustom                Kind = "custom"
	KindAccounts              Kind = "accounts"
	KindConfirmationStatement Kind = "confirmation_statement"
)

type Reminder struct {
	ID          uuid.UUID  `json:"id"`
	ClientID    uuid.UUID  `json:"clientId"`
	Kind        Kind       `json:"kind"`
	Channel     Channel    `json:"channel"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	DueAt       time.Time  `json:"dueAt"`
	Status      Status     `json:"status"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"lastError,omitempty"`
	AvailableAt time.Time  `json:"availableAt"`
	LockedAt    *time.Time `json:"-"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type FindParams struct {
	ClientID uuid.UUID `form:"-"`
	Status   Status    `form:"status"`
	Limit    int       `form:"limit"`
	Offset   int       `form:"offset"`
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Reminder, error)
	List(ctx context.Context, params *FindParams) ([]*Reminder, error)
	// Create returns ErrDuplicate when a reminder with the same client, kind,
	// channel and due time already exists.
	Create(ctx context.Context, r *Reminder) (*Reminder, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeletePendingForClient(ctx context.Context, clientID uuid.UUID) (int64, error)
}

// Queue is the delivery side of the reminders table.
type Queue interface {
	// Claim locks up to limit due reminders on the given channels and bumps
	// their attempts.
	Claim(ctx context.Context, now, lockCutoff time.Time, maxAttempts, limit int, channels []Channel) ([]*Reminder, error)
	Ack(ctx context.Context, id uuid.UUID) error
	Nack(ctx context.Context, id uuid.UUID, lastError string, next time.Time) error
	Dead(ctx context.Context, id uuid.UUID, lastError string) error
	Depth(ctx context.Context) (pending, locked int64, err error)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
