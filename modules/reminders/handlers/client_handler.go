package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/modules/reminders/services"
	"github.com/iota-uz/ledgerdesk/pkg/application"
	"github.com/iota-uz/ledgerdesk/pkg/composables"
)

const handlerTimeout = time.Minute

type Seeder interface {
	SeedDeadlines(ctx context.Context, c *client.Client) (int, error)
	CancelForClient(ctx context.Context, clientID uuid.UUID) (int64, error)
}

// ClientEventsHandler keeps deadline reminders in step with client records.
type ClientEventsHandler struct {
	app     application.Application
	service Seeder
	logger  *logrus.Logger
}

func RegisterClientEventHandlers(app application.Application) *ClientEventsHandler {
	handler := &ClientEventsHandler{
		app:     app,
		service: app.Service(services.ReminderService{}).(*services.ReminderService),
		logger:  app.Logger(),
	}
	app.EventPublisher().Subscribe(handler.OnCreated)
	app.EventPublisher().Subscribe(handler.OnUpdated)
	app.EventPublisher().Subscribe(handler.OnDeleted)
	return handler
}

func (h *ClientEventsHandler) context(c *client.Client) (context.Context, context.CancelFunc, *logrus.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	if h.app != nil && h.app.DB() != nil {
		ctx = composables.WithPool(ctx, h.app.DB())
	}
	entry := logrus.NewEntry(h.logger).WithFields(logrus.Fields{
		"client_id":      c.ID.String(),
		"company_number": c.CompanyNumber,
	})
	return composables.WithLogger(ctx, entry), cancel, entry
}

func (h *ClientEventsHandler) seed(c *client.Client) {
	ctx, cancel, entry := h.context(c)
	defer cancel()
	n, err := h.service.SeedDeadlines(ctx, c)
	if err != nil {
		entry.WithError(err).Error("reminders: seeding deadline reminders failed")
		return
	}
	if n > 0 {
		entry.WithField("scheduled", n).Info("reminders: deadline reminders scheduled")
	}
}

func (h *ClientEventsHandler) OnCreated(event *client.CreatedEvent) {
	if event == nil {
		return
	}
	h.seed(&event.Result)
}

// OnUpdated re-seeds when the company number or a delivery address changed.
func (h *ClientEventsHandler) OnUpdated(event *client.UpdatedEvent) {
	if event == nil {
		return
	}
	before, after := event.Before, event.Result
	if before.CompanyNumber == after.CompanyNumber &&
		before.Email == after.Email &&
		before.HasPostalAddress() == after.HasPostalAddress() {
		return
	}
	if before.CompanyNumber != after.CompanyNumber {
		ctx, cancel, entry := h.context(&after)
		if _, err := h.service.CancelForClient(ctx, after.ID); err != nil {
			entry.WithError(err).Error("reminders: cancelling stale reminders failed")
		}
		cancel()
	}
	h.seed(&after)
}

func (h *ClientEventsHandler) OnDeleted(event *client.DeletedEvent) {
	if event == nil {
		return
	}
	ctx, cancel, entry := h.context(&event.Result)
	defer cancel()
	n, err := h.service.CancelForClient(ctx, event.Result.ID)
	if err != nil {
		entry.WithError(err).Error("reminders: cancelling reminders failed")
		return
	}
	entry.WithField("cancelled", n).Info("reminders: pending reminders cancelled")
}
