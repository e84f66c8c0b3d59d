package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/modules/companies/domain/entities/company"
	"github.com/iota-uz/ledgerdesk/modules/reminders/domain/entities/reminder"
	"github.com/iota-uz/ledgerdesk/modules/reminders/services"
	"github.com/iota-uz/ledgerdesk/pkg/httpapi"
)

type memRepo struct {
	items map[uuid.UUID]*reminder.Reminder
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	if it, ok := r.items[id]; ok {
		return it, nil
	}
	return nil, reminder.ErrNotFound
}

func (r *memRepo) List(_ context.Context, p *reminder.FindParams) ([]*reminder.Reminder, error) {
	var out []*reminder.Reminder
	for _, it := range r.items {
		if it.ClientID == p.ClientID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *memRepo) Create(_ context.Context, rem *reminder.Reminder) (*reminder.Reminder, error) {
	rem.ID = uuid.New()
	r.items[rem.ID] = rem
	return rem, nil
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	it, ok := r.items[id]
	if !ok {
		return reminder.ErrNotFound
	}
	if it.Status != reminder.StatusPending {
		return reminder.ErrNotPending
	}
	delete(r.items, id)
	return nil
}

func (r *memRepo) DeletePendingForClient(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

type clients map[uuid.UUID]*client.Client

func (m clients) GetByID(_ context.Context, id uuid.UUID) (*client.Client, error) {
	if c, ok := m[id]; ok {
		return c, nil
	}
	return nil, client.ErrNotFound
}

type noCompanies struct{}

func (noCompanies) Get(context.Context, string) (*company.Company, error) {
	return nil, company.ErrNotFound
}

func newRouter(t *testing.T, c *client.Client) (*mux.Router, *memRepo) {
	t.Helper()
	repo := &memRepo{items: make(map[uuid.UUID]*reminder.Reminder)}
	svc := services.NewReminderService(repo, clients{c.ID: c}, noCompanies{}, services.SeedOptions{})
	ctrl := &RemindersAPIController{reminders: svc, basePath: "/api/reminders", pageSize: 25, maxPage: 100}
	r := mux.NewRouter()
	ctrl.Register(r)
	return r, repo
}

func send(r http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, &buf))
	return rec
}

func TestRemindersAPI_Lifecycle(t *testing.T) {
	jane := &client.Client{ID: uuid.New(), Name: "Jane", Email: "jane@foo.test"}
	r, repo := newRouter(t, jane)
	base := "/api/clients/" + jane.ID.String() + "/reminders"

	rec := send(r, http.MethodPost, base, map[string]any{
		"channel": "email",
		"subject": "VAT return",
		"body":    "Please send invoices.",
		"dueAt":   time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created reminder.Reminder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, reminder.StatusPending, created.Status)

	rec = send(r, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items []reminder.Reminder `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)

	rec = send(r, http.MethodGet, "/api/reminders/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	repo.items[created.ID].Status = reminder.StatusSent
	rec = send(r, http.MethodDelete, "/api/reminders/"+created.ID.String(), nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	repo.items[created.ID].Status = reminder.StatusPending
	rec = send(r, http.MethodDelete, "/api/reminders/"+created.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, repo.items)
}

func TestRemindersAPI_Errors(t *testing.T) {
	jane := &client.Client{ID: uuid.New(), Name: "Jane"}
	r, _ := newRouter(t, jane)
	due := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)

	rec := send(r, http.MethodPost, "/api/clients/"+jane.ID.String()+"/reminders", map[string]any{
		"channel": "email", "subject": "x", "body": "y", "dueAt": due,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "REMINDER_NO_RECIPIENT", env.Code)

	rec = send(r, http.MethodGet, "/api/clients/"+uuid.NewString()+"/reminders", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = send(r, http.MethodPost, "/api/clients/"+jane.ID.String()+"/reminders", map[string]any{"channel": "fax"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(r, http.MethodDelete, "/api/reminders/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = send(r, http.MethodDelete, "/api/reminders/nope", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
