package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/pkg/eventbus"
	"github.com/iota-uz/ledgerdesk/pkg/serrors"
)

type memRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*client.Client
}

func newMemRepo() *memRepo {
	return &memRepo{items: make(map[uuid.UUID]*client.Client)}
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*client.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memRepo) List(_ context.Context, params *client.FindParams) ([]*client.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*client.Client, 0, len(r.items))
	for _, c := range r.items {
		if params != nil && params.CompanyNumber != "" && c.CompanyNumber != params.CompanyNumber {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRepo) Count(ctx context.Context, params *client.FindParams) (int64, error) {
	out, _ := r.List(ctx, params)
	return int64(len(out)), nil
}

func (r *memRepo) Create(_ context.Context, c *client.Client) (*client.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	r.items[c.ID] = &cp
	return c, nil
}

func (r *memRepo) Update(_ context.Context, c *client.Client) (*client.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[c.ID]; !ok {
		return nil, client.ErrNotFound
	}
	c.UpdatedAt = time.Now()
	cp := *c
	r.items[c.ID] = &cp
	return c, nil
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return client.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func newService(t *testing.T) (*ClientService, *memRepo, eventbus.EventBus) {
	t.Helper()
	repo := newMemRepo()
	bus := eventbus.NewEventPublisher(logrus.New())
	return NewClientService(repo, bus), repo, bus
}

func TestClientService_Create_ValidatesAndPublishes(t *testing.T) {
	svc, _, bus := newService(t)
	var got *client.CreatedEvent
	bus.Subscribe(func(e *client.CreatedEvent) { got = e })

	_, err := svc.Create(context.Background(), &client.CreateDTO{Email: "nope"})
	var verrs serrors.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Contains(t, verrs, "Name")
	require.Nil(t, got)

	created, err := svc.Create(context.Background(), &client.CreateDTO{
		Name:          "  Foo Ltd ",
		Email:         "OPS@Foo.Test",
		CompanyNumber: "sc123456",
	})
	require.NoError(t, err)
	require.Equal(t, "Foo Ltd", created.Name)
	require.Equal(t, "ops@foo.test", created.Email)
	require.Equal(t, "SC123456", created.CompanyNumber)
	require.NotNil(t, got)
	require.Equal(t, created.ID, got.Result.ID)
}

func TestClientService_Update_PublishesBeforeAndAfter(t *testing.T) {
	svc, _, bus := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, &client.CreateDTO{Name: "Foo Ltd", CompanyNumber: "01234567"})
	require.NoError(t, err)

	var got *client.UpdatedEvent
	bus.Subscribe(func(e *client.UpdatedEvent) { got = e })

	updated, err := svc.Update(ctx, created.ID, &client.UpdateDTO{Name: "Foo Holdings", CompanyNumber: "07654321"})
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.NotNil(t, got)
	require.Equal(t, "01234567", got.Before.CompanyNumber)
	require.Equal(t, "07654321", got.Result.CompanyNumber)

	_, err = svc.Update(ctx, uuid.New(), &client.UpdateDTO{Name: "x"})
	require.ErrorIs(t, err, client.ErrNotFound)
}

func TestClientService_Delete(t *testing.T) {
	svc, repo, bus := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, &client.CreateDTO{Name: "Foo Ltd"})
	require.NoError(t, err)

	var got *client.DeletedEvent
	bus.Subscribe(func(e *client.DeletedEvent) { got = e })

	_, err = svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Foo Ltd", got.Result.Name)
	require.Empty(t, repo.items)

	_, err = svc.Delete(ctx, created.ID)
	require.ErrorIs(t, err, client.ErrNotFound)
}

func TestClientService_List(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	for _, name := range []string{"B Ltd", "A Ltd"} {
		_, err := svc.Create(ctx, &client.CreateDTO{Name: name})
		require.NoError(t, err)
	}
	out, total, err := svc.List(ctx, &client.FindParams{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, "A Ltd", out[0].Name)
}

func TestClientService_Search_RanksClosestFirst(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	for _, dto := range []client.CreateDTO{
		{Name: "Foodstuffs Trading Ltd"},
		{Name: "Foo"},
		{Name: "Bar Ltd", Email: "hello@bar.test"},
		{Name: "Widgets", CompanyNumber: "FO123456"},
	} {
		_, err := svc.Create(ctx, &dto)
		require.NoError(t, err)
	}

	out, err := svc.Search(ctx, "foo", 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "Foo", out[0].Name)
	require.Equal(t, "Foodstuffs Trading Ltd", out[1].Name)

	out, err = svc.Search(ctx, "bar.test", 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "Bar Ltd", out[0].Name)

	out, err = svc.Search(ctx, "   ", 0)
	require.NoError(t, err)
	require.Empty(t, out)
}
