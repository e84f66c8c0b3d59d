package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/iota-uz/ledgerdesk/modules/companies/services"
	"github.com/iota-uz/ledgerdesk/pkg/application"
	"github.com/iota-uz/ledgerdesk/pkg/configuration"
	"github.com/iota-uz/ledgerdesk/pkg/httpapi"
)

type CompaniesAPIController struct {
	lookup   *services.LookupService
	basePath string
	pageSize int
	maxPage  int
}

func NewCompaniesAPIController(app application.Application) application.Controller {
	conf := configuration.Use()
	return &CompaniesAPIController{
		lookup:   app.Service(services.LookupService{}).(*services.LookupService),
		basePath: "/api/companies",
		pageSize: conf.PageSize,
		maxPage:  conf.MaxPageSize,
	}
}

func (c *CompaniesAPIController) Key() string {
	return c.basePath
}

func (c *CompaniesAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/due", c.ListDue).Methods(http.MethodGet)
	router.HandleFunc("/{number}", c.Get).Methods(http.MethodGet)
}

func (c *CompaniesAPIController) Get(w http.ResponseWriter, r *http.Request) {
	found, err := c.lookup.Get(r.Context(), mux.Vars(r)["number"])
	if err != nil {
		writeError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, found)
}

// ListDue lists stored companies with a filing due before ?before=
// (YYYY-MM-DD, default 30 days from now).
func (c *CompaniesAPIController) ListDue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	before := time.Now().UTC().AddDate(0, 0, 30)
	if v := q.Get("before"); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_DATE", "before must be YYYY-MM-DD", nil)
			return
		}
		before = parsed
	}
	limit := c.pageSize
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && v <= c.maxPage {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		offset = v
	}

	items, err := c.lookup.ListDue(r.Context(), before, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"before": before.Format(time.DateOnly),
		"items":  items,
	})
}
