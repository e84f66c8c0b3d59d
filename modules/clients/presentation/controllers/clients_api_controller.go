package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/modules/clients/services"
	"github.com/iota-uz/ledgerdesk/pkg/application"
	"github.com/iota-uz/ledgerdesk/pkg/configuration"
	"github.com/iota-uz/ledgerdesk/pkg/httpapi"
	"github.com/iota-uz/ledgerdesk/pkg/shared"
)

var statuses = httpapi.StatusMapper{
	client.ErrNotFound.Code: http.StatusNotFound,
}

type ClientsAPIController struct {
	clients  *services.ClientService
	basePath string
	pageSize int
	maxPage  int
}

func NewClientsAPIController(app application.Application) application.Controller {
	conf := configuration.Use()
	return &ClientsAPIController{
		clients:  app.Service(services.ClientService{}).(*services.ClientService),
		basePath: "/api/clients",
		pageSize: conf.PageSize,
		maxPage:  conf.MaxPageSize,
	}
}

func (c *ClientsAPIController) Key() string {
	return c.basePath
}

func (c *ClientsAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/search", c.Search).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Get).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Update).Methods(http.MethodPut)
	router.HandleFunc("/{id}", c.Delete).Methods(http.MethodDelete)
}

func (c *ClientsAPIController) List(w http.ResponseWriter, r *http.Request) {
	params, err := shared.ParseQuery[client.FindParams](r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
		return
	}
	if params.Limit <= 0 || params.Limit > c.maxPage {
		params.Limit = c.pageSize
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	items, total, err := c.clients.List(r.Context(), params)
	if err != nil {
		c.writeError(w, err)
		return
	}
	if items == nil {
		items = []*client.Client{}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	})
}

func (c *ClientsAPIController) Search(w http.ResponseWriter, r *http.Request) {
	items, err := c.clients.Search(r.Context(), r.URL.Query().Get("q"), c.pageSize)
	if err != nil {
		c.writeError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (c *ClientsAPIController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid client id", nil)
		return
	}
	found, err := c.clients.GetByID(r.Context(), id)
	if err != nil {
		c.writeError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, found)
}

func (c *ClientsAPIController) Create(w http.ResponseWriter, r *http.Request) {
	var dto client.CreateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object", nil)
		return
	}
	created, err := c.clients.Create(r.Context(), &dto)
	if err != nil {
		c.writeError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, created)
}

func (c *ClientsAPIController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid client id", nil)
		return
	}
	var dto client.UpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object", nil)
		return
	}
	updated, err := c.clients.Update(r.Context(), id, &dto)
	if err != nil {
		c.writeError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, updated)
}

func (c *ClientsAPIController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid client id", nil)
		return
	}
	if _, err := c.clients.Delete(r.Context(), id); err != nil {
		c.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *ClientsAPIController) writeError(w http.ResponseWriter, err error) {
	_ = httpapi.WriteServiceError(w, err, statuses)
}
