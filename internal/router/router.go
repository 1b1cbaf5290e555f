package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dog-marker/internal/config"
	"dog-marker/internal/handler"
	"dog-marker/internal/middleware"
)

type Handlers struct {
	Entry    *handler.EntryHandler
	Category *handler.CategoryHandler
	Health   *handler.HealthHandler
}

func New(cfg *config.Config, logger *slog.Logger, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM)

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Health)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))
		api.Use(authMiddleware.Identify)

		api.Get("/entries", h.Entry.List)
		api.Get("/entries/{entry_id}", h.Entry.Get)
		api.Get("/categories", h.Category.List)

		api.Route("/users/{user_id}", func(user chi.Router) {
			user.Use(authMiddleware.RequireAuth, authMiddleware.RequireSelf("user_id"))

			user.Get("/entries", h.Entry.ListOwned)
			user.Post("/entries", h.Entry.Create)
			user.Put("/entries/{entry_id}", h.Entry.Update)
			user.Delete("/entries/{entry_id}", h.Entry.Delete)
			user.Post("/entries/{entry_id}/restore", h.Entry.Restore)
			user.Get("/trash", h.Entry.ListTrash)
		})
	})

	return r
}
