package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/lingkungan/api"
	"github.com/frahmantamala/lingkungan/internal/approval"
	"github.com/frahmantamala/lingkungan/internal/auth"
	"github.com/frahmantamala/lingkungan/internal/transport/middleware"
	"github.com/frahmantamala/lingkungan/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

const APIBasePath = "/api/v1"

type Handlers struct {
	Approval  *approval.Handler
	RBAC      *auth.RBACAuthorization
	Validator *middleware.OpenAPIValidator
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.OpenAPISpec)
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route(APIBasePath, func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Approval == nil || h.RBAC == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(h.RBAC.Authenticate)
			if h.Validator != nil {
				pr.Use(h.Validator.Middleware)
			}

			pr.Route("/approvals", func(ar chi.Router) {
				ar.Get("/", h.Approval.ListApprovals)   // GET /approvals
				ar.Get("/stats", h.Approval.GetStats)   // GET /approvals/stats
				ar.Get("/{id}", h.Approval.GetApproval) // GET /approvals/:id

				ar.With(h.RBAC.RequireApprove()).Patch("/{id}/approve", h.Approval.ApproveApproval)
				ar.With(h.RBAC.RequireReject()).Patch("/{id}/reject", h.Approval.RejectApproval)
				ar.With(h.RBAC.RequireReset()).Patch("/{id}/reset", h.Approval.ResetApproval)
			})
		})
	})
}
