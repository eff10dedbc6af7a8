// internal/server/router.go
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"libradesk/internal/auth"
	"libradesk/internal/catalog"
	"libradesk/internal/circulation"
	"libradesk/internal/dashboard"
	"libradesk/internal/membership"
	"libradesk/pkg/database"
)

// NewRouter wires the domain services and their HTTP surface onto a single
// chi router.
func NewRouter(db *database.DB, issuer *auth.TokenIssuer) chi.Router {
	catalogHandler := catalog.NewHandler(catalog.NewService(db))
	membershipHandler := membership.NewHandler(membership.NewService(db), issuer)
	circulationHandler := circulation.NewHandler(circulation.NewService(db))
	dashboardHandler := dashboard.NewHandler(dashboard.NewService(db))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/books", func(r chi.Router) {
		r.Get("/", catalogHandler.List)
		r.Post("/", catalogHandler.Create)
		r.Put("/{id}", catalogHandler.Update)
		r.Delete("/{id}", catalogHandler.Delete)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", membershipHandler.List)
		r.Post("/", membershipHandler.Create)
		r.Put("/{id}", membershipHandler.Update)
		r.Delete("/{id}", membershipHandler.Delete)
	})

	r.Route("/loans", func(r chi.Router) {
		r.Get("/", circulationHandler.List)
		r.Post("/", circulationHandler.Create)
		r.Put("/{id}", circulationHandler.Update)
		r.Post("/{id}/return", circulationHandler.Return)
		r.Delete("/{id}", circulationHandler.Delete)
	})

	r.Post("/auth/login", membershipHandler.Login)
	r.Get("/dashboard/stats", dashboardHandler.Stats)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
