package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront-state/internal/domain"
)

// ErrInvalidResponse is returned when the auth API answers with an unusable body
var ErrInvalidResponse = errors.New("invalid response from auth API")

// HTTPProvider talks to the storefront auth API. Each call is a single
// attempt; retrying is left to the caller.
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPProvider creates a provider for the API at baseURL. A nil client
// gets a default one with a 10 second timeout.
func NewHTTPProvider(baseURL string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// Login posts the credentials to /api/auth/login
func (p *HTTPProvider) Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error) {
	var result domain.LoginResult
	if err := p.post(ctx, "/api/auth/login", creds, &result); err != nil {
		return nil, err
	}
	if result.Token == "" {
		return nil, ErrInvalidResponse
	}
	return &result, nil
}

type messageResponse struct {
	Message string `json:"message"`
}

// ForgotPassword posts to /api/auth/forgot-password
func (p *HTTPProvider) ForgotPassword(ctx context.Context, email string) (string, error) {
	var resp messageResponse
	body := map[string]string{"email": email}
	if err := p.post(ctx, "/api/auth/forgot-password", body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ResetPassword posts to /api/auth/reset-password
func (p *HTTPProvider) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	var resp messageResponse
	body := map[string]string{"token": token, "password": newPassword}
	if err := p.post(ctx, "/api/auth/reset-password", body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (p *HTTPProvider) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return domain.ErrAuthenticationFailed
	case http.StatusBadRequest:
		return domain.ErrInvalidInput
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	default:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
