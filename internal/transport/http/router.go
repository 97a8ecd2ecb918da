// Package httptransport assembles the public HTTP surface: middleware stack,
// health and metrics endpoints, and the feature routers.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ledgerHandler "veriflow/internal/ledger/handler"
	"veriflow/internal/platform/middleware"
	verifyHandler "veriflow/internal/verification/handler"
)

// Deps carries everything the router mounts.
type Deps struct {
	Verification *verifyHandler.Handler
	Ledger       *ledgerHandler.Handler
	JWTValidator middleware.JWTValidator
	AdminToken   string
	Registry     *prometheus.Registry
	Logger       *slog.Logger
	RateLimit    int
	RateWindow   time.Duration
}

// NewRouter wires all endpoints behind the shared middleware stack.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	// Authenticated user surface.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.JWTValidator, deps.Logger))
		if deps.RateLimit > 0 {
			limiter := middleware.NewRateLimiter(deps.RateLimit, deps.RateWindow, deps.Logger)
			r.Use(limiter.Limit)
		}
		deps.Verification.Register(r)
		deps.Ledger.Register(r)
	})

	// Admin surface, gated by the static operator token.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(deps.AdminToken, deps.Logger))
		deps.Ledger.RegisterAdmin(r)
	})

	return r
}
