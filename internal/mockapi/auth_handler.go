package mockapi

import (
	"context"
	"net/http"

	"storefront-state/internal/domain"
	"storefront-state/internal/middleware"
	"storefront-state/internal/observability"
)

// Authenticator is everything the auth endpoints need from an identity
// backend. *session.MockProvider implements it.
type Authenticator interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)
	middleware.TokenVerifier
}

type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type messageResponse struct {
	Message string `json:"message"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if !decode(w, r, &creds) {
		return
	}

	result, err := h.auth.Login(r.Context(), creds)
	if err != nil {
		observability.FromContext(r.Context()).Info("login rejected", "error", err)
		writeDomainError(w, r, err)
		return
	}

	observability.FromContext(r.Context()).Info("login issued",
		"user_id", result.User.ID,
		"role", result.User.Role.String())
	writeJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	msg, err := h.auth.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	msg, err := h.auth.ResetPassword(r.Context(), req.Token, req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// Me returns the identity carried by the bearer token
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, identity)
}
