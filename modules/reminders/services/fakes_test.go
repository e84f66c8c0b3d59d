package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/modules/companies/domain/entities/company"
	"github.com/iota-uz/ledgerdesk/modules/reminders/domain/entities/reminder"
)

type memRepo struct {
	mu    sync.Mutex
	items []*reminder.Reminder
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, reminder.ErrNotFound
}

func (r *memRepo) List(_ context.Context, params *reminder.FindParams) ([]*reminder.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*reminder.Reminder
	for _, it := range r.items {
		if params.ClientID != uuid.Nil && it.ClientID != params.ClientID {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (r *memRepo) Create(_ context.Context, rem *reminder.Reminder) (*reminder.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.ClientID == rem.ClientID && it.Kind == rem.Kind && it.Channel == rem.Channel && it.DueAt.Equal(rem.DueAt) {
			return nil, reminder.ErrDuplicate
		}
	}
	rem.ID = uuid.New()
	if rem.Status == "" {
		rem.Status = reminder.StatusPending
	}
	r.items = append(r.items, rem)
	return rem, nil
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, it := range r.items {
		if it.ID == id {
			if it.Status != reminder.StatusPending {
				return reminder.ErrNotPending
			}
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return reminder.ErrNotFound
}

func (r *memRepo) DeletePendingForClient(_ context.Context, clientID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*reminder.Reminder
	var n int64
	for _, it := range r.items {
		if it.ClientID == clientID && it.Status == reminder.StatusPending {
			n++
			continue
		}
		kept = append(kept, it)
	}
	r.items = kept
	return n, nil
}

type clientMap map[uuid.UUID]*client.Client

func (m clientMap) GetByID(_ context.Context, id uuid.UUID) (*client.Client, error) {
	if c, ok := m[id]; ok {
		return c, nil
	}
	return nil, client.ErrNotFound
}

type companyMap map[string]*company.Company

func (m companyMap) Get(_ context.Context, number string) (*company.Company, error) {
	if c, ok := m[number]; ok {
		return c, nil
	}
	return nil, company.ErrNotFound
}

type queueCall struct {
	op   string
	id   uuid.UUID
	err  string
	next time.Time
}

type fakeQueue struct {
	claim    []*reminder.Reminder
	calls    []queueCall
	channels []reminder.Channel
	claims   int
}

func (q *fakeQueue) Claim(_ context.Context, _, _ time.Time, _, _ int, channels []reminder.Channel) ([]*reminder.Reminder, error) {
	q.claims++
	q.channels = channels
	out := q.claim
	q.claim = nil
	return out, nil
}

func (q *fakeQueue) Ack(_ context.Context, id uuid.UUID) error {
	q.calls = append(q.calls, queueCall{op: "ack", id: id})
	return nil
}

func (q *fakeQueue) Nack(_ context.Context, id uuid.UUID, lastError string, next time.Time) error {
	q.calls = append(q.calls, queueCall{op: "nack", id: id, err: lastError, next: next})
	return nil
}

func (q *fakeQueue) Dead(_ context.Context, id uuid.UUID, lastError string) error {
	q.calls = append(q.calls, queueCall{op: "dead", id: id, err: lastError})
	return nil
}

func (q *fakeQueue) Depth(context.Context) (int64, int64, error) {
	return 0, 0, nil
}
