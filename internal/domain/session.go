package domain

import (
	"time"
)

// Session represents an authenticated client session
type Session struct {
	Identity  Identity  `json:"user"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsValid reports whether the session is still usable at now.
// A session is valid iff now < ExpiresAt.
func (s *Session) IsValid(now time.Time) bool {
	if s == nil || s.Token == "" {
		return false
	}
	return now.Before(s.ExpiresAt)
}

// Credentials is what the login surface submits
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is returned by a login provider on success
type LoginResult struct {
	Token     string   `json:"token"`
	User      Identity `json:"user"`
	ExpiresIn int64    `json:"expiresIn"` // seconds
}

// TTL returns the token lifetime as a duration.
func (r *LoginResult) TTL() time.Duration {
	return time.Duration(r.ExpiresIn) * time.Second
}
