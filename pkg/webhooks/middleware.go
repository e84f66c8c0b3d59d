// Package webhooks guards inbound provider callbacks: the body is size
// limited, authenticated and checked for replays before the handler runs.
package webhooks

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/ledgerdesk/pkg/composables"
	"github.com/iota-uz/ledgerdesk/pkg/httpapi"
)

type SignatureVerifier interface {
	Verify(ctx context.Context, r *http.Request, body []byte) error
}

type ReplayProtector interface {
	Check(ctx context.Context, r *http.Request, body []byte) error
}

var (
	ErrReplayDetected = errors.New("webhook replay detected")
	errBodyTooLarge   = errors.New("webhook payload too large")
)

const defaultMaxBodyBytes = 1 << 20

type Option func(*guard)

func WithMaxBodyBytes(n int64) Option {
	return func(g *guard) {
		if n > 0 {
			g.maxBodyBytes = n
		}
	}
}

var deliveries = sync.OnceValue(func() *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "webhooks",
		Name:      "deliveries_total",
		Help:      "Inbound webhook deliveries, by outcome.",
	}, []string{"outcome"})
})

// rejection is one way a delivery can fail the guard.
type rejection struct {
	status  int
	code    string
	message string
}

var (
	rejectMisconfigured = rejection{http.StatusInternalServerError, "WEBHOOK_MISCONFIGURED", "webhook middleware misconfigured"}
	rejectBadRequest    = rejection{http.StatusBadRequest, "WEBHOOK_BAD_REQUEST", "invalid webhook payload"}
	rejectTooLarge      = rejection{http.StatusRequestEntityTooLarge, "WEBHOOK_PAYLOAD_TOO_LARGE", "invalid webhook payload"}
	rejectUnauthorized  = rejection{http.StatusUnauthorized, "WEBHOOK_UNAUTHORIZED", "invalid webhook signature"}
	rejectReplay        = rejection{http.StatusConflict, "WEBHOOK_REPLAY", "webhook replay detected"}
)

type guard struct {
	verifier     SignatureVerifier
	protector    ReplayProtector
	maxBodyBytes int64
}

// Bind mounts a guarded subrouter under prefix, "/api/webhooks" by default.
func Bind(router *mux.Router, prefix string, verifier SignatureVerifier, protector ReplayProtector, opts ...Option) *mux.Router {
	if router == nil {
		return nil
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = "/api/webhooks"
	}
	sub := router.PathPrefix(prefix).Subrouter()
	sub.Use(Middleware(verifier, protector, opts...))
	return sub
}

func Middleware(verifier SignatureVerifier, protector ReplayProtector, opts ...Option) mux.MiddlewareFunc {
	g := &guard{verifier: verifier, protector: protector, maxBodyBytes: defaultMaxBodyBytes}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rej, err := g.admit(r); rej != nil {
				reject(w, r, *rej, err)
				return
			}
			deliveries().WithLabelValues("accepted").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

// admit returns nil when the delivery may reach the handler. The request body
// is restored so the handler can read it again.
func (g *guard) admit(r *http.Request) (*rejection, error) {
	if g.verifier == nil || g.protector == nil {
		return &rejectMisconfigured, nil
	}
	body, err := readAndRestoreBody(r, g.maxBodyBytes)
	switch {
	case errors.Is(err, errBodyTooLarge):
		return &rejectTooLarge, err
	case err != nil:
		return &rejectBadRequest, err
	}
	if err := g.verifier.Verify(r.Context(), r, body); err != nil {
		return &rejectUnauthorized, err
	}
	if err := g.protector.Check(r.Context(), r, body); err != nil {
		if errors.Is(err, ErrReplayDetected) {
			return &rejectReplay, err
		}
		return &rejectBadRequest, err
	}
	return nil, nil
}

func reject(w http.ResponseWriter, r *http.Request, rej rejection, err error) {
	deliveries().WithLabelValues(strings.ToLower(strings.TrimPrefix(rej.code, "WEBHOOK_"))).Inc()
	entry := composables.UseLogger(r.Context()).WithField("code", rej.code)
	var meta map[string]string
	if err != nil {
		entry = entry.WithError(err)
		meta = map[string]string{"error": err.Error()}
	}
	entry.Warn("webhook delivery rejected")
	_ = httpapi.WriteError(w, rej.status, rej.code, rej.message, meta)
}

func readAndRestoreBody(r *http.Request, maxBytes int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, errBodyTooLarge
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}
