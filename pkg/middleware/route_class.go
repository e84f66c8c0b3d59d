package middleware

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/ledgerdesk/pkg/composables"
	"github.com/iota-uz/ledgerdesk/pkg/routing"
)

// WithRouteClass adds the allowlist class of the request path to the request
// logger. It must run after WithLogger.
func WithRouteClass(classifier *routing.Classifier) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class := classifier.Classify(r.URL.Path)
			if class == routing.RouteClassUnknown {
				class = "unknown"
			}
			entry := composables.UseLogger(r.Context()).WithField("route_class", string(class))
			next.ServeHTTP(w, r.WithContext(composables.WithLogger(r.Context(), entry)))
		})
	}
}
