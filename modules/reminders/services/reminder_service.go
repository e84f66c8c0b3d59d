package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/modules/companies/domain/entities/company"
	"github.com/iota-uz/ledgerdesk/modules/reminders/domain/entities/reminder"
	"github.com/iota-uz/ledgerdesk/pkg/composables"
)

type ClientReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*client.Client, error)
}

type CompanyReader interface {
	Get(ctx context.Context, number string) (*company.Company, error)
}

type SeedOptions struct {
	// LeadDays lists how many days before a deadline a reminder goes out.
	LeadDays []int
	// SendHour is the UTC hour of day reminders become due.
	SendHour int
	Now      func() time.Time
}

type ReminderService struct {
	repo      reminder.Repository
	clients   ClientReader
	companies CompanyReader
	seed      SeedOptions
	m         *reminderMetrics
}

func NewReminderService(repo reminder.Repository, clients ClientReader, companies CompanyReader, seed SeedOptions) *ReminderService {
	if seed.Now == nil {
		seed.Now = time.Now
	}
	return &ReminderService{
		repo:      repo,
		clients:   clients,
		companies: companies,
		seed:      seed,
		m:         getReminderMetrics(),
	}
}

func (s *ReminderService) GetByID(ctx context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ReminderService) List(ctx context.Context, clientID uuid.UUID, params *reminder.FindParams) ([]*reminder.Reminder, error) {
	if params == nil {
		params = &reminder.FindParams{}
	}
	if _, err := s.clients.GetByID(ctx, clientID); err != nil {
		return nil, err
	}
	params.ClientID = clientID
	return s.repo.List(ctx, params)
}

// Schedule stores a hand-written reminder for the client.
func (s *ReminderService) Schedule(ctx context.Context, clientID uuid.UUID, dto *reminder.CreateDTO) (*reminder.Reminder, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	c, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	r := dto.ToEntity(c.ID)
	if err := checkRecipient(r.Channel, c); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, r)
	if err != nil {
		return nil, err
	}
	s.m.scheduledTotal.WithLabelValues(string(created.Kind)).Inc()
	return created, nil
}

func (s *ReminderService) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *ReminderService) CancelForClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	return s.repo.DeletePendingForClient(ctx, clientID)
}

type deadline struct {
	kind   reminder.Kind
	label  string
	phrase string
	date   *time.Time
}

// SeedDeadlines schedules reminders ahead of the accounts and confirmation
// statement deadlines of the client's company. Reminders already scheduled
// and ones that would fall in the past are skipped. It returns how many
// reminders were created.
func (s *ReminderService) SeedDeadlines(ctx context.Context, c *client.Client) (int, error) {
	if c.CompanyNumber == "" {
		return 0, nil
	}
	channel, ok := preferredChannel(c)
	if !ok {
		composables.UseLogger(ctx).WithField("client_id", c.ID.String()).
			Info("reminders: client has no email or postal address, nothing seeded")
		return 0, nil
	}
	co, err := s.companies.Get(ctx, c.CompanyNumber)
	if err != nil {
		if errors.Is(err, company.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	now := s.seed.Now().UTC()
	created := 0
	for _, d := range []deadline{
		{kind: reminder.KindAccounts, label: "Annual accounts", phrase: "annual accounts", date: co.AccountsNextDue},
		{kind: reminder.KindConfirmationStatement, label: "Confirmation statement", phrase: "confirmation statement", date: co.ConfStmtNextDue},
	} {
		if d.date == nil {
			continue
		}
		for _, lead := range s.seed.LeadDays {
			dueAt := time.Date(d.date.Year(), d.date.Month(), d.date.Day(), s.seed.SendHour, 0, 0, 0, time.UTC).
				AddDate(0, 0, -lead)
			if dueAt.Before(now) {
				continue
			}
			_, err := s.repo.Create(ctx, &reminder.Reminder{
				ClientID: c.ID,
				Kind:     d.kind,
				Channel:  channel,
				Subject:  fmt.Sprintf("%s for %s due %s", d.label, co.Name, d.date.Format("2 January 2006")),
				Body:     deadlineBody(c, co, d),
				DueAt:    dueAt,
			})
			if errors.Is(err, reminder.ErrDuplicate) {
				continue
			}
			if err != nil {
				return created, err
			}
			created++
			s.m.scheduledTotal.WithLabelValues(string(d.kind)).Inc()
		}
	}
	return created, nil
}

func deadlineBody(c *client.Client, co *company.Company, d deadline) string {
	return fmt.Sprintf(
		"Dear %s,\n\nThe %s for %s (company number %s) must be filed by %s. "+
			"Please send us your records so we can prepare it in good time.\n",
		c.Name, d.phrase, co.Name, co.Number, d.date.Format("2 January 2006"),
	)
}

func preferredChannel(c *client.Client) (reminder.Channel, bool) {
	switch {
	case c.Email != "":
		return reminder.ChannelEmail, true
	case c.HasPostalAddress():
		return reminder.ChannelPost, true
	default:
		return "", false
	}
}

func checkRecipient(ch reminder.Channel, c *client.Client) error {
	switch ch {
	case reminder.ChannelEmail:
		if c.Email == "" {
			return reminder.ErrNoRecipient
		}
	case reminder.ChannelPost:
		if !c.HasPostalAddress() {
			return reminder.ErrNoRecipient
		}
	default:
		return reminder.ErrInvalidChannel
	}
	return nil
}
