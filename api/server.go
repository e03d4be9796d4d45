/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from proxy headers
  3. Logger:     Structured request logging (slog)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /healthz                 Liveness (public)
  /api/auth/login          Login (public)
  /api/*                   Staff (admin, subadmin), bearer token required
  admin-only subgroups     Status changes, deletes, payouts, subadmins

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Token verification and role middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/insafmmkurram-create/web/registry"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log()))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)
			r.Use(RequireRole(registry.RoleAdmin, registry.RoleSubadmin))

			r.Get("/me", h.Me)
			r.Get("/stats", h.Stats)

			// Applicant routes
			r.Route("/applicants", func(r chi.Router) {
				r.Get("/", h.ListApplicants)
				r.Post("/", h.CreateApplicant)
				r.Get("/{id}", h.GetApplicant)
				r.Put("/{id}", h.UpdateApplicant)

				r.With(RequireRole(registry.RoleAdmin)).Delete("/{id}", h.DeleteApplicant)
				r.With(RequireRole(registry.RoleAdmin)).Post("/{id}/status", h.ChangeStatus)
			})

			// Payment routes
			r.Route("/payments", func(r chi.Router) {
				r.Get("/history", h.PaymentHistory)
				r.Get("/history/{householdID}", h.HouseholdHistory)

				r.Group(func(r chi.Router) {
					r.Use(RequireRole(registry.RoleAdmin))
					r.Post("/calculate", h.Calculate)
					r.Post("/export", h.Export)
					r.Post("/commit", h.Commit)
				})
			})

			// Subadmin management
			r.Route("/subadmins", func(r chi.Router) {
				r.Use(RequireRole(registry.RoleAdmin))
				r.Get("/", h.ListSubadmins)
				r.Post("/", h.CreateSubadmin)
				r.Put("/{id}", h.UpdateSubadmin)
				r.Put("/{id}/password", h.UpdateSubadminPassword)
				r.Delete("/{id}", h.DeleteSubadmin)
			})
		})
	})

	return r
}

// requestLogger logs one line per request after it completes.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			logger.LogAttrs(r.Context(), slog.LevelInfo, "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
