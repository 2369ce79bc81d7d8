// Package httpserver wires the chi router, middleware chain, and operation
// handlers into a runnable http.Handler, following the pack's convention
// (Gouryella-supabase-studio-go's internal/server, taibuivan-yomira's
// internal/api) of a single composition-root package separate from the
// domain handlers it mounts.
package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"smf/internal/authn"
	"smf/internal/handlers"
)

// requestTimeout bounds how long a single request may run before the
// context is canceled; generous enough for a nested-select query plan
// against a large table.
const requestTimeout = 30 * time.Second

// New builds the gateway's HTTP handler: the chi middleware chain, the
// bearer-auth middleware, and every route named in spec.md §6, mounted
// under /api.
func New(h *handlers.Handler, verifier *authn.Verifier, log *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(requestLogger(log))

	r.Route("/api", func(api chi.Router) {
		api.Use(authenticate(verifier, log))

		api.Get("/tables", h.Tables)
		api.Post("/rpc/{name}", h.RPC)
		api.Post("/admin/reload-policies", h.ReloadPolicies)

		api.Route("/{table}", func(t chi.Router) {
			t.Get("/", h.List)
			t.Post("/", h.Create)
			t.Patch("/", h.Patch)
			t.Delete("/", h.Delete)
			t.Get("/count", h.Count)
			t.Get("/describe", h.Describe)
			t.Get("/groupby", h.GroupBy)
			t.Get("/aggregate", h.Aggregate)

			t.Route("/{id}", func(id chi.Router) {
				id.Get("/", h.Read)
				id.Get("/exists", h.Exists)
				id.Put("/", h.Update)
				id.Delete("/", h.Delete)
				id.Get("/{child}", h.Relational)
			})
		})
	})

	return r
}
