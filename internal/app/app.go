// Package app wires the storefront state engine from configuration:
// storage backend, session and cart stores, route guard and request signer.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"storefront-state/internal/authz"
	"storefront-state/internal/cart"
	"storefront-state/internal/config"
	"storefront-state/internal/domain"
	"storefront-state/internal/session"
	"storefront-state/internal/signer"
	"storefront-state/internal/storage"
)

// App is one running engine. Create a single App per process; the
// stores assume they are the only writers of their keys.
type App struct {
	Config     *config.Config
	Storage    storage.Store
	Sessions   *session.Store
	Cart       *cart.Store
	Guard      *authz.Guard
	Signer     *signer.Signer
	HTTPClient *http.Client

	closers []func() error
}

type options struct {
	navigator session.Navigator
	logger    *slog.Logger
	store     storage.Store
}

// Option customizes New
type Option func(*options)

// WithNavigator is told where to go after logout
func WithNavigator(n session.Navigator) Option {
	return func(o *options) { o.navigator = n }
}

// WithLogger replaces slog.Default for the stores
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStorage skips the configured backend and uses s
func WithStorage(s storage.Store) Option {
	return func(o *options) { o.store = s }
}

// New builds the engine. A nil provider means the HTTP auth API at
// cfg.APIBaseURL.
func New(ctx context.Context, cfg *config.Config, provider session.Provider, opts ...Option) (*App, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg}

	kv := o.store
	if kv == nil {
		var closer func() error
		var err error
		kv, closer, err = OpenStorage(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}
	a.Storage = kv

	if provider == nil {
		provider = session.NewHTTPProvider(cfg.APIBaseURL, nil)
	}

	sessionOpts := []session.Option{
		session.WithLoginPath(cfg.LoginPath),
		session.WithLogger(o.logger),
	}
	if o.navigator != nil {
		sessionOpts = append(sessionOpts, session.WithNavigator(o.navigator))
	}
	a.Sessions = session.NewStore(kv, provider, sessionOpts...)
	a.Cart = cart.NewStore(kv, cart.WithLogger(o.logger))
	a.Guard = authz.NewGuard(a.Sessions, authz.WithGuardLoginPath(cfg.LoginPath))
	a.Signer = signer.New(a.Sessions, cfg.APIOrigins...)
	a.HTTPClient = &http.Client{
		Transport: a.Signer.Transport(nil),
		Timeout:   15 * time.Second,
	}

	o.logger.Info("storefront engine ready",
		slog.String("storage", cfg.StorageBackend),
		slog.Bool("authenticated", a.Sessions.IsAuthenticated()),
		slog.Int("cart_items", a.Cart.ItemCount()),
	)
	return a, nil
}

// OpenStorage opens the backend named by cfg.StorageBackend. The returned
// closer may be nil.
func OpenStorage(ctx context.Context, cfg *config.Config) (storage.Store, func() error, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory, "":
		return storage.NewMemoryStore(), nil, nil

	case config.BackendFile:
		fs, err := storage.NewFileStore(cfg.StorageDir, cfg.StorageScope)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file storage: %w", err)
		}
		return fs, nil, nil

	case config.BackendPostgres:
		if err := storage.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
		db, err := config.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		ps, err := storage.NewPostgresStore(db, cfg.StorageScope)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return ps, closeBoth(ps, db), nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func closeBoth(ps *storage.PostgresStore, db *sql.DB) func() error {
	return func() error {
		return errors.Join(ps.Close(), db.Close())
	}
}

// NewMockProvider builds the in-process mock identity provider from cfg
func NewMockProvider(cfg *config.Config) *session.MockProvider {
	return session.NewMockProvider(cfg.JWTSecret,
		session.WithLatency(cfg.MockLatency),
		session.WithTokenTTL(cfg.SessionTTL),
	)
}

// NewGate mounts producer's subtree while the session role is one of roles
func (a *App) NewGate(roles []domain.Role, producer func() (teardown func())) *authz.Gate {
	return authz.NewGate(a.Sessions, roles, producer)
}

// Navigate evaluates destination against the route table
func (a *App) Navigate(destination string) authz.Decision {
	return a.Guard.Check(destination)
}

// Close releases storage resources
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
