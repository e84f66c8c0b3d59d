package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/modules/documents/domain/entities/document"
	"github.com/iota-uz/ledgerdesk/modules/documents/services"
	"github.com/iota-uz/ledgerdesk/pkg/application"
	"github.com/iota-uz/ledgerdesk/pkg/configuration"
	"github.com/iota-uz/ledgerdesk/pkg/httpapi"
	"github.com/iota-uz/ledgerdesk/pkg/shared"
)

var statuses = httpapi.StatusMapper{
	document.ErrNotFound.Code:        http.StatusNotFound,
	document.ErrUnsupportedType.Code: http.StatusUnsupportedMediaType,
	document.ErrEmpty.Code:           http.StatusBadRequest,
	document.ErrAnalysisOff.Code:     http.StatusServiceUnavailable,
	document.ErrAnalysisFailed.Code:  http.StatusBadGateway,
	client.ErrNotFound.Code:          http.StatusNotFound,
}

type DocumentsAPIController struct {
	documents *services.DocumentService
	analysis  *services.AnalysisService
	basePath  string
	maxSize   int64
	maxMemory int64
}

func NewDocumentsAPIController(app application.Application) application.Controller {
	conf := configuration.Use()
	return &DocumentsAPIController{
		documents: app.Service(services.DocumentService{}).(*services.DocumentService),
		analysis:  app.Service(services.AnalysisService{}).(*services.AnalysisService),
		basePath:  "/api/documents",
		maxSize:   conf.MaxUploadSize,
		maxMemory: conf.MaxUploadMemory,
	}
}

func (c *DocumentsAPIController) Key() string {
	return c.basePath
}

func (c *DocumentsAPIController) Register(r *mux.Router) {
	byClient := r.PathPrefix("/api/clients/{id}/documents").Subrouter()
	byClient.HandleFunc("", c.List).Methods(http.MethodGet)
	byClient.HandleFunc("", c.Upload).Methods(http.MethodPost)

	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/{id}", c.Get).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/{id}/content", c.Content).Methods(http.MethodGet)
	router.HandleFunc("/{id}/analysis", c.Analyze).Methods(http.MethodPost)
}

func (c *DocumentsAPIController) List(w http.ResponseWriter, r *http.Request) {
	clientID, err := shared.ParseID(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid client id", nil)
		return
	}
	items, err := c.documents.ListByClient(r.Context(), clientID)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err, statuses)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Upload accepts a multipart form with a "file" part and an optional
// "category" field.
func (c *DocumentsAPIController) Upload(w http.ResponseWriter, r *http.Request) {
	clientID, err := shared.ParseID(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid client id", nil)
		return
	}
	if c.maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, c.maxSize)
	}
	if err := r.ParseMultipartForm(c.maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = httpapi.WriteError(w, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE",
				fmt.Sprintf("file exceeds %d bytes", tooLarge.Limit), nil)
			return
		}
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request must be multipart/form-data", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "UPLOAD_MISSING_FILE", "multipart field \"file\" is required", nil)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "failed to read file", nil)
		return
	}

	created, err := c.documents.Upload(r.Context(), clientID, &document.UploadDTO{
		Filename: header.Filename,
		Category: r.FormValue("category"),
		Data:     data,
	})
	if err != nil {
		_ = httpapi.WriteServiceError(w, err, statuses)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, created)
}

func (c *DocumentsAPIController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid document id", nil)
		return
	}
	found, err := c.documents.GetByID(r.Context(), id)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err, statuses)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, found)
}

func (c *DocumentsAPIController) Content(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid document id", nil)
		return
	}
	doc, data, err := c.documents.Download(r.Context(), id)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err, statuses)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (c *DocumentsAPIController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid document id", nil)
		return
	}
	if _, err := c.documents.Delete(r.Context(), id); err != nil {
		_ = httpapi.WriteServiceError(w, err, statuses)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *DocumentsAPIController) Analyze(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseID(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid document id", nil)
		return
	}
	var dto document.AnalysisDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object", nil)
		return
	}
	result, err := c.analysis.Analyze(r.Context(), id, &dto)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err, statuses)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, result)
}
