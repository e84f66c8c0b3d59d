package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/modules/reminders/domain/entities/reminder"
	"github.com/iota-uz/ledgerdesk/modules/reminders/services"
	"github.com/iota-uz/ledgerdesk/pkg/application"
	"github.com/iota-uz/ledgerdesk/pkg/configuration"
	"github.com/iota-uz/ledgerdesk/pkg/httpapi"
	"github.com/iota-uz/ledgerdesk/pkg/shared"
)

var statuses = httpapi.StatusMapper{
	reminder.ErrNotFound.Code:       http.StatusNotFound,
	reminder.ErrDuplicate.Code:      http.StatusConflict,
	reminder.ErrNotPending.Code:     http.StatusConflict,
	reminder.ErrNoRecipient.Code:    http.StatusUnprocessableEntity,
	reminder.ErrInvalidChannel.Code: http.StatusBadRequest,
	client.ErrNotFound.Code:         http.StatusNotFound,
}

type RemindersAPIController struct {
	reminders *services.ReminderService
	basePath  string
	pageSize  int
	maxPage   int
}

func NewRemindersAPIController(app application.Application) application.Controller {
	conf := configuration.Use()
	return &RemindersAPIController{
		reminders: app.Service(services.ReminderService{}).(*services.ReminderService),
		basePath:  "/api/reminders",
		pageSize:  conf.PageSize,
		maxPage:   conf.MaxPageSize,
	}
}

func (c *RemindersAPIController) Key() string {
	return c.basePath
}

func (c *RemindersAPIController) Register(r *mux.Router) {
	byClient := r.PathPrefix("/api/clients/{id}/reminders").Subrouter()
	byClient.HandleFunc("", c.List).Methods(http.MethodGet)
	byClient.HandleFunc("", c.Create).Methods(http.MethodPost)

	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/{id}", c.Get).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Delete).Methods(http.MethodDelete)
}

func (c *RemindersAPIController) List(w http.ResponseWriter, r *http.Request) {
	clientID, err := shared.ParseID(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid client id", nil)
		return
	}
	params, err := shared.ParseQuery[reminder.FindParams](r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
		return
	}
	if params.Limit <= 0 || params.Limit > c.maxPage {
		params.Limit = c.pageSize
	}
	items, err := c.reminders.List(r.Context(), clientID, params)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err, statuses)
		return
	}
	if items == nil {
		items = []*reminder.Reminder{}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (c *RemindersAPIController) Create(w http.ResponseWriter, r *http.Request) {
	clientID, err := shared.ParseID(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid client id", nil)
		return
	}
	var dto reminder.CreateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object", nil)
		return
	}
	created, err := c.reminders.Schedule(r.Context(), clientID, &dto)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err, statuses)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, created)
}

func (c *RemindersAPIController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid reminder id", nil)
		return
	}
	found, err := c.reminders.GetByID(r.Context(), id)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err, statuses)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, found)
}

func (c *RemindersAPIController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid reminder id", nil)
		return
	}
	if err := c.reminders.Cancel(r.Context(), id); err != nil {
		_ = httpapi.WriteServiceError(w, err, statuses)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
