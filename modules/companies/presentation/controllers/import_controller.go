package controllers

import (
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/iota-uz/ledgerdesk/modules/companies/services"
	"github.com/iota-uz/ledgerdesk/pkg/application"
	"github.com/iota-uz/ledgerdesk/pkg/composables"
	"github.com/iota-uz/ledgerdesk/pkg/configuration"
	"github.com/iota-uz/ledgerdesk/pkg/httpapi"
	"github.com/iota-uz/ledgerdesk/pkg/storage"
)

const previewRows = 50

type ImportController struct {
	app       application.Application
	imports   *services.ImportService
	storage   storage.Storage
	basePath  string
	maxSize   int64
	maxMemory int64
	// announce publishes ObjectCreatedEvent after an upload. Off when the
	// bucket's storage webhook does the import.
	announce bool
}

func NewImportController(app application.Application, store storage.Storage) application.Controller {
	conf := configuration.Use()
	return &ImportController{
		app:       app,
		imports:   app.Service(services.ImportService{}).(*services.ImportService),
		storage:   store,
		basePath:  "/companies",
		maxSize:   conf.Import.MaxFileSize,
		maxMemory: conf.MaxUploadMemory,
		announce:  conf.Import.UploadTrigger != configuration.UploadTriggerWebhook,
	}
}

func (c *ImportController) Key() string {
	return c.basePath
}

func (c *ImportController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/clean", c.Clean).Methods(http.MethodPost)
	router.HandleFunc("/import", c.Import).Methods(http.MethodPost)
	router.HandleFunc("/uploads", c.Upload).Methods(http.MethodPost)
}

// Clean returns the cleaned file as a CSV download, or a JSON preview when
// format=json is requested.
func (c *ImportController) Clean(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, c.maxSize, c.maxMemory)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := c.imports.Clean(r.Context(), up.Data, up.Filename)
	if err != nil {
		writeError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		rows := out.Result.Rows
		if len(rows) > previewRows {
			rows = rows[:previewRows]
		}
		_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
			"filename": out.Filename,
			"format":   out.Format,
			"encoding": out.Encoding,
			"columns":  out.Result.Columns,
			"rows":     rows,
			"stats":    out.Result.Stats,
			"warnings": out.Result.Warnings,
		})
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cleanedName(up.Filename)))
	w.Header().Set("X-Rows-Read", strconv.Itoa(out.Result.Stats.Read))
	w.Header().Set("X-Rows-Emitted", strconv.Itoa(out.Result.Stats.Emitted))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.CSV)
}

// Import upserts the uploaded file straight away and reports per batch.
func (c *ImportController) Import(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, c.maxSize, c.maxMemory)
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := c.imports.Import(r.Context(), up.Data, "upload:"+up.Filename)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if report.Failed > 0 {
		status = http.StatusMultiStatus
	}
	_ = httpapi.WriteJSON(w, status, report)
}

// Upload stores the file in the import bucket and answers 202 at once. The
// import runs in the background, started either by the storage event
// handler or by the bucket's storage webhook.
func (c *ImportController) Upload(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, c.maxSize, c.maxMemory)
	if err != nil {
		writeError(w, err)
		return
	}
	name := path.Base(strings.ReplaceAll(up.Filename, "\\", "/"))
	objectPath := time.Now().UTC().Format("2006/01/02/150405") + "-" + name
	bucket := c.imports.Bucket()
	if err := c.storage.Save(r.Context(), bucket, objectPath, up.Data, up.ContentType); err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("companies: failed to store upload")
		writeError(w, err)
		return
	}
	if c.announce {
		c.app.EventPublisher().Publish(&storage.ObjectCreatedEvent{
			Bucket:      bucket,
			Path:        objectPath,
			Size:        int64(len(up.Data)),
			ContentType: up.ContentType,
			Source:      "upload",
			CreatedAt:   time.Now(),
		})
	}
	_ = httpapi.WriteJSON(w, http.StatusAccepted, map[string]string{
		"bucket": bucket,
		"path":   objectPath,
	})
}

func cleanedName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "companies"
	}
	return base + "-cleaned.csv"
}
