package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/modules/documents/domain/entities/document"
)

type memRepo struct {
	mu        sync.Mutex
	items     []*document.Document
	createErr error
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*document.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.items {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, document.ErrNotFound
}

func (r *memRepo) ListByClient(_ context.Context, clientID uuid.UUID) ([]*document.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*document.Document
	for _, d := range r.items {
		if d.ClientID == clientID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memRepo) Create(_ context.Context, d *document.Document) (*document.Document, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, d)
	return d, nil
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, d := range r.items {
		if d.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return document.ErrNotFound
}

type clientMap map[uuid.UUID]*client.Client

func (m clientMap) GetByID(_ context.Context, id uuid.UUID) (*client.Client, error) {
	if c, ok := m[id]; ok {
		return c, nil
	}
	return nil, client.ErrNotFound
}

type fakeCompleter struct {
	enabled bool
	reply   string
	err     error
	calls   int
	prompts []string
}

func (f *fakeCompleter) Enabled() bool { return f.enabled }

func (f *fakeCompleter) Model() string { return "test-model" }

func (f *fakeCompleter) Complete(_ context.Context, _, user string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, user)
	return f.reply, f.err
}
