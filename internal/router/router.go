package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/doj0985/databricks-aibi-external-embedding/internal/config"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/handler"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/middleware"
)

func New(
	cfg *config.Config,
	sessionMiddleware *middleware.SessionMiddleware,
	authHandler *handler.AuthHandler,
	dashboardHandler *handler.DashboardHandler,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.FrontendOrigin))
	r.Use(rateLimitMiddleware.Handler)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", handler.Health)

		api.Group(func(timed chi.Router) {
			timed.Use(middleware.Timeout(cfg.RequestTimeout))

			timed.Route("/auth", func(auth chi.Router) {
				auth.Post("/login", authHandler.Login)
				auth.Post("/logout", authHandler.Logout)
				auth.With(sessionMiddleware.RequireSession).Get("/current-user", authHandler.CurrentUser)
			})

			timed.With(sessionMiddleware.RequireSession).Get("/dashboard/embed-config", dashboardHandler.EmbedConfig)
		})
	})

	return r
}
