// Package mockapi serves the storefront backend the client engine talks to:
// JWT login, password recovery, the product catalogue and the admin user
// directory, all in memory.
package mockapi

import (
	"context"
	"net/http"

	"storefront-state/internal/catalog"
	"storefront-state/internal/directory"
	"storefront-state/internal/domain"
	"storefront-state/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures the router
type Options struct {
	Auth           Authenticator
	Catalog        catalog.Provider
	Users          directory.Provider
	AllowedOrigins []string
	// AuthRateLimit is requests per second per client on the auth endpoints.
	AuthRateLimit  float64
	AuthRateBurst  int
}

// NewRouter builds the API. ctx bounds the rate limiter's background sweep.
// A nil Users gets a seeded directory.MockDirectory.
func NewRouter(ctx context.Context, opts Options) http.Handler {
	if opts.AuthRateLimit <= 0 {
		opts.AuthRateLimit = 5
	}
	if opts.AuthRateBurst <= 0 {
		opts.AuthRateBurst = 10
	}

	if opts.Users == nil {
		opts.Users = directory.NewMockDirectory(nil, 0)
	}

	authHandler := NewAuthHandler(opts.Auth)
	productHandler := NewProductHandler(opts.Catalog)
	userHandler := NewUserHandler(opts.Users)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger())
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(opts.AllowedOrigins))
	r.Use(middleware.Metrics())

	r.Get("/health", Health)
	r.Get("/health/ready", Ready(map[string]Check{
		"catalog": func(ctx context.Context) error {
			_, err := opts.Catalog.List(ctx)
			return err
		},
	}))
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	r.Route("/api", func(r chi.Router) {
		authLimiter := middleware.NewRateLimiter(ctx, opts.AuthRateLimit, opts.AuthRateBurst)

		r.Group(func(r chi.Router) {
			r.Use(authLimiter.Middleware())
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/forgot-password", authHandler.ForgotPassword)
			r.Post("/auth/reset-password", authHandler.ResetPassword)
		})

		r.Get("/products", productHandler.List)
		r.Get("/products/{id}", productHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(opts.Auth))
			r.Get("/auth/me", authHandler.Me)

			r.With(middleware.RequireRole(domain.RoleSeller, domain.RoleAdmin)).
				Post("/products", productHandler.Create)
			r.With(middleware.RequireRole(domain.RoleSeller, domain.RoleAdmin)).
				Put("/products/{id}", productHandler.Update)
			r.With(middleware.RequireRole(domain.RoleAdmin)).
				Delete("/products/{id}", productHandler.Delete)

			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleAdmin))
				r.Get("/", userHandler.List)
				r.Post("/", userHandler.Create)
				r.Get("/stats", userHandler.Stats)
				r.Get("/{id}", userHandler.Get)
				r.Put("/{id}", userHandler.Update)
				r.Delete("/{id}", userHandler.Delete)
				r.Post("/{id}/toggle-status", userHandler.ToggleStatus)
			})
		})
	})

	return r
}
