package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/ledgerdesk/pkg/serrors"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestWriteServiceError(t *testing.T) {
	t.Parallel()

	notFound := serrors.NewError("CLIENT_NOT_FOUND", "client not found", "")
	statuses := StatusMapper{"CLIENT_NOT_FOUND": http.StatusNotFound}

	rec := httptest.NewRecorder()
	require.NoError(t, WriteServiceError(rec, fmt.Errorf("get 9: %w", notFound), statuses))
	require.Equal(t, http.StatusNotFound, rec.Code)
	env := decode(t, rec)
	require.Equal(t, "CLIENT_NOT_FOUND", env.Code)
	require.Equal(t, "get 9: client not found", env.Message)

	rec = httptest.NewRecorder()
	require.NoError(t, WriteServiceError(rec, serrors.ValidationErrors{"Email": "Email is required"}, statuses))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, map[string]string{"Email": "Email is required"}, decode(t, rec).Meta)

	rec = httptest.NewRecorder()
	require.NoError(t, WriteServiceError(rec, errors.New("connection refused"), statuses))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "internal server error", decode(t, rec).Message)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
