package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"time"

	"storefront-state/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	defaultLoginLatency = time.Second
	defaultTokenTTL     = time.Hour
	// MinPasswordLength applies to password resets
	MinPasswordLength = 8
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// RoleForEmail derives the role the mock backend assigns to an account
func RoleForEmail(email string) domain.Role {
	lower := strings.ToLower(strings.TrimSpace(email))
	switch {
	case lower == "admin@tienda.com":
		return domain.RoleAdmin
	case lower == "seller@tienda.com" || strings.Contains(lower, "vendedor"):
		return domain.RoleSeller
	default:
		return domain.RoleBuyer
	}
}

// MockProvider authenticates any non-blank credentials after a fixed delay
// and issues HS256 tokens. It also serves password recovery.
type MockProvider struct {
	secret  []byte
	latency time.Duration
	ttl     time.Duration
	now     func() time.Time

	recoveryRate  rate.Limit
	recoveryBurst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// MockOption configures a MockProvider
type MockOption func(*MockProvider)

// WithLatency sets the simulated network delay for login and reset. Password
// recovery requests take half as long again.
func WithLatency(d time.Duration) MockOption {
	return func(p *MockProvider) {
		p.latency = d
	}
}

// WithTokenTTL sets the lifetime reported in expiresIn
func WithTokenTTL(ttl time.Duration) MockOption {
	return func(p *MockProvider) {
		p.ttl = ttl
	}
}

// WithTokenClock overrides the time source used to sign and verify tokens
func WithTokenClock(now func() time.Time) MockOption {
	return func(p *MockProvider) {
		p.now = now
	}
}

// WithRecoveryLimit throttles forgot-password requests per email
func WithRecoveryLimit(r rate.Limit, burst int) MockOption {
	return func(p *MockProvider) {
		p.recoveryRate = r
		p.recoveryBurst = burst
	}
}

// NewMockProvider creates a mock provider signing tokens with secret
func NewMockProvider(secret string, opts ...MockOption) *MockProvider {
	p := &MockProvider{
		secret:        []byte(secret),
		latency:       defaultLoginLatency,
		ttl:           defaultTokenTTL,
		now:           time.Now,
		recoveryRate:  rate.Every(time.Minute),
		recoveryBurst: 3,
		limiters:      make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Login issues a session for any non-blank credentials
func (p *MockProvider) Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error) {
	if err := wait(ctx, p.latency); err != nil {
		return nil, err
	}

	email := strings.TrimSpace(creds.Username)
	if email == "" || strings.TrimSpace(creds.Password) == "" {
		return nil, domain.ErrAuthenticationFailed
	}

	identity := p.identityFor(email)
	token, err := p.signToken(identity)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &domain.LoginResult{
		Token:     token,
		User:      identity,
		ExpiresIn: int64(p.ttl / time.Second),
	}, nil
}

func (p *MockProvider) identityFor(email string) domain.Identity {
	identity := domain.Identity{
		ID:    uuid.NewString(),
		Email: email,
		Role:  RoleForEmail(email),
	}
	switch identity.Role {
	case domain.RoleAdmin:
		identity.DisplayName = "Administrador Principal"
		identity.AvatarURL = "https://i.pravatar.cc/150?img=12"
	case domain.RoleSeller:
		identity.DisplayName = "Vendedor TechStore"
		identity.AvatarURL = "https://i.pravatar.cc/150?img=33"
	default:
		identity.DisplayName, _, _ = strings.Cut(email, "@")
		identity.AvatarURL = fmt.Sprintf("https://i.pravatar.cc/150?img=%d", rand.IntN(70))
	}
	return identity
}

func (p *MockProvider) signToken(identity domain.Identity) (string, error) {
	now := p.now()
	claims := jwt.MapClaims{
		"sub":    identity.ID,
		"email":  identity.Email,
		"name":   identity.DisplayName,
		"role":   identity.Role.String(),
		"avatar": identity.AvatarURL,
		"iat":    now.Unix(),
		"exp":    now.Add(p.ttl).Unix(),
		"jti":    uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

// ParseToken verifies a token issued by Login and returns its identity
func (p *MockProvider) ParseToken(tokenString string) (*domain.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthenticationFailed, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", domain.ErrAuthenticationFailed)
	}

	identity := &domain.Identity{}
	identity.ID, _ = claims["sub"].(string)
	identity.Email, _ = claims["email"].(string)
	identity.DisplayName, _ = claims["name"].(string)
	identity.AvatarURL, _ = claims["avatar"].(string)
	role, _ := claims["role"].(string)
	identity.Role = domain.Role(role)
	if identity.ID == "" || !identity.Role.IsValid() {
		return nil, fmt.Errorf("%w: incomplete claims", domain.ErrAuthenticationFailed)
	}
	return identity, nil
}

func (p *MockProvider) limiter(email string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[email]
	if !ok {
		l = rate.NewLimiter(p.recoveryRate, p.recoveryBurst)
		p.limiters[email] = l
	}
	return l
}

// ForgotPassword pretends to send recovery instructions to email
func (p *MockProvider) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(email) || len(email) > 255 {
		return "", domain.ErrInvalidInput
	}
	if !p.limiter(email).Allow() {
		return "", domain.ErrRateLimited
	}
	if err := wait(ctx, p.latency*3/2); err != nil {
		return "", err
	}

	slog.Debug("password reset token issued", slog.String("email", email), slog.String("token", "reset-"+uuid.NewString()))
	return fmt.Sprintf("Recovery instructions have been sent to %s.", email), nil
}

// ResetPassword accepts any non-blank reset token
func (p *MockProvider) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	if strings.TrimSpace(token) == "" || len(newPassword) < MinPasswordLength {
		return "", domain.ErrInvalidInput
	}
	if err := wait(ctx, p.latency); err != nil {
		return "", err
	}
	return "Your password has been updated. You can now log in.", nil
}
