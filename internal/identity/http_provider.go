package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/models"
)

// HTTPProvider talks to a hosted GoTrue-style identity API.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPProvider creates an identity client for the given base URL.
func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *HTTPProvider {
	return &HTTPProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type passwordGrantRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordGrantResponse struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// VerifyCredentials performs a password-grant token exchange. The returned
// provider session is discarded; only the user identity matters here.
func (p *HTTPProvider) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	body, err := json.Marshal(passwordGrantRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode credentials request: %w", err)
	}

	url := p.baseURL + "/token?grant_type=password"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build credentials request: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Error("identity provider unreachable", slog.Any("error", err))
		return nil, models.ErrIdentityUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var grant passwordGrantResponse
		if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
			return nil, fmt.Errorf("failed to decode credentials response: %w", err)
		}
		if grant.User.ID == "" {
			return nil, models.ErrIdentityUnavailable
		}
		return &models.User{ID: grant.User.ID, Email: grant.User.Email}, nil
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusUnprocessableEntity:
		// The provider does not distinguish unknown email from wrong
		// password, and neither do we.
		return nil, models.ErrInvalidCredentials
	default:
		p.logger.Error("unexpected identity provider response",
			slog.Int("status", resp.StatusCode))
		return nil, models.ErrIdentityUnavailable
	}
}

// SignOut revokes all provider-side sessions for the user.
func (p *HTTPProvider) SignOut(ctx context.Context, userID string) error {
	url := fmt.Sprintf("%s/admin/users/%s/logout", p.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build sign-out request: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return models.ErrIdentityUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("identity sign-out failed with status %d", resp.StatusCode)
	}
	return nil
}

// GetUser fetches the provider record for a user.
func (p *HTTPProvider) GetUser(ctx context.Context, userID string) (*models.User, error) {
	url := fmt.Sprintf("%s/admin/users/%s", p.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build user request: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, models.ErrIdentityUnavailable
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var user models.User
		if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
			return nil, fmt.Errorf("failed to decode user response: %w", err)
		}
		return &user, nil
	case http.StatusNotFound:
		return nil, models.ErrNotFound
	default:
		return nil, models.ErrIdentityUnavailable
	}
}

func (p *HTTPProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
		req.Header.Set("apikey", p.apiKey)
	}
}
