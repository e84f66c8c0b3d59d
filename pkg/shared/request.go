// Package shared holds request parsing helpers used by controllers.
package shared

import (
	"net/http"
	"strings"

	"github.com/go-playground/form"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

var decoder = form.NewDecoder()

// ParseQuery decodes the URL query into a new T using `form` struct tags.
func ParseQuery[T any](r *http.Request) (*T, error) {
	var v T
	if err := decoder.Decode(&v, r.URL.Query()); err != nil {
		return nil, err
	}
	return &v, nil
}

// ParseID reads the "id" route variable as a UUID.
func ParseID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(mux.Vars(r)["id"]))
}
