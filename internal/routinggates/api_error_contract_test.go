package routinggates

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	internalserver "github.com/iota-uz/ledgerdesk/internal/server"
	"github.com/iota-uz/ledgerdesk/modules"
	"github.com/iota-uz/ledgerdesk/pkg/application"
	"github.com/iota-uz/ledgerdesk/pkg/configuration"
	"github.com/iota-uz/ledgerdesk/pkg/eventbus"
	"github.com/iota-uz/ledgerdesk/pkg/httpapi"
	"github.com/iota-uz/ledgerdesk/pkg/storage"
)

func TestAPIErrorContracts_JSONOnly_For404And405(t *testing.T) {
	router := buildRouter(t)

	cases := []struct {
		name   string
		method string
		target string
		status int
		code   string
	}{
		{"unknown api path", http.MethodGet, "/api/__nonexistent__", http.StatusNotFound, "NOT_FOUND"},
		{"unknown top level path", http.MethodGet, "/__nonexistent__", http.StatusNotFound, "NOT_FOUND"},
		{"wrong method on clients", http.MethodPatch, "/api/clients", http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{"wrong method on import", http.MethodGet, "/companies/import", http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, "http://example.com"+tc.target, nil)
			req.Header.Set("X-Request-ID", "req-"+tc.code)
			router.ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)
			require.Contains(t, rec.Header().Get("Content-Type"), "application/json")

			var payload httpapi.ErrorEnvelope
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&payload))
			require.Equal(t, tc.code, payload.Code)
			require.NotEmpty(t, payload.Message)
		})
	}
}

func buildRouter(t *testing.T) *mux.Router {
	t.Helper()
	t.Setenv("LOG_PATH", filepath.Join(t.TempDir(), "app.log"))
	conf := configuration.Use()
	logger, _ := test.NewNullLogger()

	pool, err := pgxpool.New(context.Background(), conf.Database.Opts)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	require.NoError(t, modules.Load(app, modules.BuiltInModules(storage.NewLocalStorage(t.TempDir()))...))

	srv, err := internalserver.Default(&internalserver.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	require.NoError(t, err)
	return srv.Router()
}
