// Package session owns the authentication session lifecycle: login, lazy
// token expiry, logout and the identity change stream.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"storefront-state/internal/domain"
	"storefront-state/internal/notify"
	"storefront-state/internal/observability"
	"storefront-state/internal/storage"
)

// DefaultLoginPath is where Logout sends the navigator
const DefaultLoginPath = "/auth/login"

// ErrRecoveryUnsupported is returned when the provider cannot recover passwords
var ErrRecoveryUnsupported = errors.New("provider does not support password recovery")

// Provider authenticates credentials against a backend
type Provider interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error)
}

// PasswordRecoverer is implemented by providers that support password recovery
type PasswordRecoverer interface {
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)
}

// Navigator receives the navigation side effect of Logout
type Navigator interface {
	Navigate(path string)
}

// authData is the persisted shape under storage.KeyAuthData
type authData struct {
	Token     string          `json:"token"`
	User      domain.Identity `json:"user"`
	ExpiresAt int64           `json:"expiresAt"`
	IssuedAt  int64           `json:"issuedAt,omitempty"`
}

func (a *authData) session() *domain.Session {
	s := &domain.Session{
		Identity:  a.User,
		Token:     a.Token,
		ExpiresAt: time.UnixMilli(a.ExpiresAt),
	}
	if a.IssuedAt > 0 {
		s.IssuedAt = time.UnixMilli(a.IssuedAt)
	}
	return s
}

// Store is the single source of session state. Every read goes back to the
// persisted blob so that expiry and external writes are honoured.
type Store struct {
	kv        storage.Store
	provider  Provider
	navigator Navigator
	loginPath string
	now       func() time.Time
	logger    *slog.Logger

	// mu serializes storage access and stream publication
	mu sync.Mutex
	// revoked is a logged-out token whose blob could not be removed
	revoked string
	// loginSem allows one login in flight at a time
	loginSem chan struct{}
	stream   *notify.Stream[*domain.Identity]
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source used for expiry checks
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithNavigator sets the navigator notified on logout
func WithNavigator(n Navigator) Option {
	return func(s *Store) {
		s.navigator = n
	}
}

// WithLoginPath overrides DefaultLoginPath
func WithLoginPath(path string) Option {
	return func(s *Store) {
		s.loginPath = path
	}
}

// WithLogger sets the logger used for store events
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore creates a Store and rehydrates it from kv. An expired or corrupt
// persisted session is purged and the store starts Anonymous.
func NewStore(kv storage.Store, provider Provider, opts ...Option) *Store {
	s := &Store{
		kv:        kv,
		provider:  provider,
		loginPath: DefaultLoginPath,
		now:       time.Now,
		logger:    slog.Default(),
		loginSem:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.stream = notify.New[*domain.Identity](nil, notify.WithCopy(func(i *domain.Identity) *domain.Identity {
		return i.Clone()
	}))

	s.mu.Lock()
	sess := s.resolveLocked()
	s.mu.Unlock()
	s.stream.Flush()

	if sess != nil {
		observability.SessionTransitionsTotal.WithLabelValues("rehydrated").Inc()
		s.logger.Info("session rehydrated",
			slog.String("user_id", sess.Identity.ID),
			slog.String("role", sess.Identity.Role.String()),
			slog.Time("expires_at", sess.ExpiresAt),
		)
	}
	return s
}

// LoginPath returns the path of the login surface
func (s *Store) LoginPath() string {
	return s.loginPath
}

// resolveLocked reads the persisted session, purges it when expired or
// corrupt, and brings the stream in line with what storage holds.
// Callers hold s.mu and must Flush the stream after releasing it.
func (s *Store) resolveLocked() *domain.Session {
	var data authData
	found, err := storage.GetJSON(s.kv, storage.KeyAuthData, &data)
	switch {
	case errors.Is(err, storage.ErrCorruptValue):
		s.logger.Warn("discarding corrupt session", slog.String("error", err.Error()))
		s.purgeLocked()
		s.publishLocked(nil)
		return nil
	case err != nil:
		// Unreadable storage is treated as Anonymous but left in place
		observability.StorageErrorsTotal.WithLabelValues("session_read").Inc()
		s.logger.Warn("session read failed", slog.String("error", err.Error()))
		s.publishLocked(nil)
		return nil
	case !found:
		s.publishLocked(nil)
		return nil
	}

	if s.revoked != "" && data.Token == s.revoked {
		if s.purgeLocked() {
			s.revoked = ""
		}
		s.publishLocked(nil)
		return nil
	}

	sess := data.session()
	if !sess.IsValid(s.now()) {
		s.purgeLocked()
		if s.stream.Current() != nil {
			observability.SessionTransitionsTotal.WithLabelValues("expired").Inc()
			s.logger.Info("session expired", slog.String("user_id", sess.Identity.ID))
		}
		s.publishLocked(nil)
		return nil
	}

	s.publishLocked(&sess.Identity)
	return sess
}

// publishLocked publishes identity if it differs from the last published value
func (s *Store) publishLocked(identity *domain.Identity) {
	current := s.stream.Current()
	switch {
	case current == nil && identity == nil:
		return
	case current != nil && identity != nil && *current == *identity:
		return
	}
	s.stream.Publish(identity.Clone())
}

func (s *Store) purgeLocked() bool {
	if err := s.kv.Remove(storage.KeyAuthData); err != nil {
		observability.StorageErrorsTotal.WithLabelValues("session_remove").Inc()
		s.logger.Error("failed to purge session", slog.String("error", err.Error()))
		return false
	}
	return true
}

func (s *Store) current() *domain.Session {
	s.mu.Lock()
	sess := s.resolveLocked()
	s.mu.Unlock()
	s.stream.Flush()
	return sess
}

// CurrentIdentity returns the authenticated identity, or nil when Anonymous
func (s *Store) CurrentIdentity() *domain.Identity {
	sess := s.current()
	if sess == nil {
		return nil
	}
	return sess.Identity.Clone()
}

// CurrentToken returns the bearer token of a valid session
func (s *Store) CurrentToken() (string, bool) {
	sess := s.current()
	if sess == nil {
		return "", false
	}
	return sess.Token, true
}

// CurrentSession returns a copy of the valid session, if any
func (s *Store) CurrentSession() (domain.Session, bool) {
	sess := s.current()
	if sess == nil {
		return domain.Session{}, false
	}
	return *sess, true
}

// IsAuthenticated reports whether a non-expired token is present
func (s *Store) IsAuthenticated() bool {
	_, ok := s.CurrentToken()
	return ok
}

// Login authenticates with the provider (a single attempt) and persists the
// resulting session. Logins are serialized; the last one to finish wins.
func (s *Store) Login(ctx context.Context, creds domain.Credentials) (*domain.Identity, error) {
	logger := observability.FromContext(ctx)

	select {
	case s.loginSem <- struct{}{}:
	case <-ctx.Done():
		observability.SessionLoginFailuresTotal.Inc()
		return nil, ctx.Err()
	}
	defer func() { <-s.loginSem }()

	result, err := s.provider.Login(ctx, creds)
	if err != nil {
		observability.SessionLoginFailuresTotal.Inc()
		logger.Warn("login failed", slog.String("username", creds.Username), slog.String("error", err.Error()))
		if errors.Is(err, domain.ErrAuthenticationFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if result == nil || result.Token == "" || result.ExpiresIn <= 0 {
		observability.SessionLoginFailuresTotal.Inc()
		return nil, fmt.Errorf("%w: provider returned an unusable session", domain.ErrAuthenticationFailed)
	}

	now := s.now()
	data := authData{
		Token:     result.Token,
		User:      result.User,
		ExpiresAt: now.Add(result.TTL()).UnixMilli(),
		IssuedAt:  now.UnixMilli(),
	}

	s.mu.Lock()
	if err := storage.SetJSON(s.kv, storage.KeyAuthData, data); err != nil {
		s.mu.Unlock()
		observability.SessionLoginFailuresTotal.Inc()
		observability.StorageErrorsTotal.WithLabelValues("session_write").Inc()
		logger.Error("failed to persist session", slog.String("error", err.Error()))
		return nil, fmt.Errorf("persist session: %w", err)
	}
	s.revoked = ""
	// Every login is a transition, even for an unchanged identity
	s.stream.Publish(data.User.Clone())
	s.mu.Unlock()
	s.stream.Flush()

	observability.SessionTransitionsTotal.WithLabelValues("login").Inc()
	logger.Info("user logged in",
		slog.String("user_id", data.User.ID),
		slog.String("role", data.User.Role.String()),
	)
	return data.User.Clone(), nil
}

// Logout purges the session, notifies observers and navigates to the login
// surface. It always succeeds and may be called any number of times.
func (s *Store) Logout() {
	s.mu.Lock()
	wasAuthenticated := s.stream.Current() != nil
	var data authData
	found, _ := storage.GetJSON(s.kv, storage.KeyAuthData, &data)
	if !s.purgeLocked() && found {
		s.revoked = data.Token
	}
	s.publishLocked(nil)
	s.mu.Unlock()
	s.stream.Flush()

	if wasAuthenticated {
		observability.SessionTransitionsTotal.WithLabelValues("logout").Inc()
		s.logger.Info("user logged out")
	}
	if s.navigator != nil {
		s.navigator.Navigate(s.loginPath)
	}
}

// Subscribe registers fn for identity changes. fn receives the current
// identity immediately. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(*domain.Identity)) (unsubscribe func()) {
	s.current()
	return s.stream.Subscribe(fn)
}

// Watch returns a channel with the current identity and later changes until
// ctx is done.
func (s *Store) Watch(ctx context.Context) <-chan *domain.Identity {
	s.current()
	return s.stream.Watch(ctx)
}

// ForgotPassword starts password recovery for email. It does not change the
// session state.
func (s *Store) ForgotPassword(ctx context.Context, email string) (string, error) {
	recoverer, ok := s.provider.(PasswordRecoverer)
	if !ok {
		return "", ErrRecoveryUnsupported
	}
	if strings.TrimSpace(email) == "" {
		return "", domain.ErrInvalidInput
	}
	return recoverer.ForgotPassword(ctx, email)
}

// ResetPassword completes password recovery with a reset token
func (s *Store) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	recoverer, ok := s.provider.(PasswordRecoverer)
	if !ok {
		return "", ErrRecoveryUnsupported
	}
	return recoverer.ResetPassword(ctx, token, newPassword)
}
