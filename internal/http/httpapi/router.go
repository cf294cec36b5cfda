package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"escrow-service/internal/http/handlers"
	"escrow-service/internal/infra"
	"escrow-service/internal/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config, logger zerolog.Logger, lookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	// Middlewares dasar
	r.Use(
		chimw.RealIP,
		middleware.RequestID,
		chimw.Recoverer,
		middleware.Logger(logger),
	)

	// Health
	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	// API routes carry the full chain; probes and scrapes stay outside
	// the rate limit.
	r.Group(func(r chi.Router) {
		r.Use(
			middleware.CORS(cfg.CORSOrigins),
			middleware.RateLimit(cfg.RateLimitPerMin, time.Minute),
			middleware.I18N(cfg.DefaultLocale, lookup),
		)

		r.Route("/v1/auth", func(r chi.Router) {
			r.Post("/register", app.Register)
			r.Post("/login", app.Login)
			r.With(middleware.AuthJWT(cfg.JWTSecret)).Get("/me", app.Me)
		})

		r.Route("/v1/projects", func(r chi.Router) {
			r.With(middleware.OptionalAuthJWT(cfg.JWTSecret)).Get("/", app.ProjectsList)
			r.With(middleware.OptionalAuthJWT(cfg.JWTSecret)).Get("/{id}", app.ProjectGet)

			r.Group(func(r chi.Router) {
				r.Use(middleware.AuthJWT(cfg.JWTSecret))
				r.Post("/", app.ProjectsCreate)
				r.Post("/{id}/fund", app.ProjectFund)
				r.Post("/{id}/approve", app.ProjectApprove)
				r.Post("/{id}/withdraw", app.ProjectWithdraw)
				r.Post("/{id}/refund", app.ProjectRefund)
			})
		})

		r.Get("/v1/feed", app.FeedRecent)
	})

	return r
}
