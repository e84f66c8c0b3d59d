package controllers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/iota-uz/ledgerdesk/modules/companies/services"
	"github.com/iota-uz/ledgerdesk/pkg/application"
	"github.com/iota-uz/ledgerdesk/pkg/httpapi"
	"github.com/iota-uz/ledgerdesk/pkg/webhooks"
)

// storageEvent is the payload of a database webhook on storage.objects.
type storageEvent struct {
	Type   string `json:"type"`
	Table  string `json:"table"`
	Schema string `json:"schema"`
	Record struct {
		BucketID string `json:"bucket_id"`
		Name     string `json:"name"`
		Metadata struct {
			Size     int64  `json:"size"`
			Mimetype string `json:"mimetype"`
		} `json:"metadata"`
	} `json:"record"`
}

type StorageWebhookController struct {
	imports   *services.ImportService
	verifier  webhooks.SignatureVerifier
	protector webhooks.ReplayProtector
}

func NewStorageWebhookController(
	app application.Application,
	verifier webhooks.SignatureVerifier,
	protector webhooks.ReplayProtector,
) application.Controller {
	return &StorageWebhookController{
		imports:   app.Service(services.ImportService{}).(*services.ImportService),
		verifier:  verifier,
		protector: protector,
	}
}

func (c *StorageWebhookController) Key() string {
	return "/api/webhooks/storage"
}

func (c *StorageWebhookController) Register(r *mux.Router) {
	sub := webhooks.Bind(r, "/api/webhooks", c.verifier, c.protector)
	sub.HandleFunc("/storage", c.Handle).Methods(http.MethodPost)
}

// Handle imports objects created in the import bucket and answers with the
// run report. Other events are acknowledged and ignored.
func (c *StorageWebhookController) Handle(w http.ResponseWriter, r *http.Request) {
	var ev storageEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "WEBHOOK_INVALID_JSON", "invalid json", nil)
		return
	}
	if !strings.EqualFold(ev.Type, "INSERT") || ev.Record.BucketID != c.imports.Bucket() || ev.Record.Name == "" {
		_ = httpapi.WriteJSON(w, http.StatusAccepted, map[string]any{"ignored": true})
		return
	}

	start := time.Now()
	report, err := c.imports.ImportObject(r.Context(), ev.Record.BucketID, ev.Record.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"ignored":  false,
		"report":   report,
		"duration": time.Since(start).String(),
	})
}
