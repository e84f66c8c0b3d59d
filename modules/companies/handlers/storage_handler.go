package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/ledgerdesk/modules/companies/services"
	"github.com/iota-uz/ledgerdesk/pkg/application"
	"github.com/iota-uz/ledgerdesk/pkg/composables"
	"github.com/iota-uz/ledgerdesk/pkg/storage"
)

const importTimeout = 15 * time.Minute

// ImportRunner is the part of ImportService the handler needs.
type ImportRunner interface {
	Bucket() string
	ImportObject(ctx context.Context, bucket, objectPath string) (*services.Report, error)
}

type StorageEventsHandler struct {
	service ImportRunner
	pool    *pgxpool.Pool
	logger  *logrus.Logger

	running *sync.WaitGroup
}

func NewStorageEventsHandler(service ImportRunner, pool *pgxpool.Pool, logger *logrus.Logger) *StorageEventsHandler {
	return &StorageEventsHandler{service: service, pool: pool, logger: logger, running: &sync.WaitGroup{}}
}

// RegisterStorageEventHandlers subscribes the handler and registers it as a
// service so the server can drain running imports on shutdown.
func RegisterStorageEventHandlers(app application.Application) *StorageEventsHandler {
	handler := NewStorageEventsHandler(
		app.Service(services.ImportService{}).(*services.ImportService),
		app.DB(),
		app.Logger(),
	)
	app.EventPublisher().Subscribe(handler.OnObjectCreated)
	app.RegisterServices(handler)
	return handler
}

// OnObjectCreated starts a background import for objects that land in the
// import bucket and returns at once. Other buckets are ignored.
func (h *StorageEventsHandler) OnObjectCreated(event *storage.ObjectCreatedEvent) {
	if event == nil || event.Bucket != h.service.Bucket() {
		return
	}
	h.running.Add(1)
	go func() {
		defer h.running.Done()
		h.run(*event)
	}()
}

// Wait blocks until every started import has finished or ctx is done.
func (h *StorageEventsHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *StorageEventsHandler) run(event storage.ObjectCreatedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
	defer cancel()
	if h.pool != nil {
		ctx = composables.WithPool(ctx, h.pool)
	}
	entry := logrus.NewEntry(h.logger).WithFields(logrus.Fields{
		"bucket": event.Bucket,
		"path":   event.Path,
		"origin": event.Source,
	})
	ctx = composables.WithLogger(ctx, entry)

	report, err := h.service.ImportObject(ctx, event.Bucket, event.Path)
	if err != nil {
		entry.WithError(err).Error("companies: triggered import failed")
		return
	}
	entry.WithFields(logrus.Fields{
		"written": report.Written,
		"failed":  report.Failed,
	}).Info("companies: triggered import done")
}
