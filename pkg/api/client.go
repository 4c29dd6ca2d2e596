package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"adminbot/pkg/logger"
	"adminbot/pkg/models"

	"github.com/google/uuid"
)

// TokenSource yields the current bearer token, or "" when logged out.
type TokenSource func() string

// APIError carries the HTTP status and the best-effort message extracted
// from the JSON error body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsAuthError reports whether err is an APIError with a 401 or 403 status.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden)
}

// Client talks to the remote admin API. It owns no business logic: every
// method is a thin HTTP call with the bearer token attached when present.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource
	log     logger.ILogger

	// Called when the identity check comes back 401/403. Other endpoints'
	// auth failures are surfaced as plain errors without touching the
	// session, so a flaky endpoint can't log the operator out.
	onAuthFailure func()
}

func New(baseURL string, timeout time.Duration, token TokenSource, log logger.ILogger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		token:   token,
		log:     log,
	}
}

func (c *Client) OnAuthFailure(fn func()) {
	c.onAuthFailure = fn
}

func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}, out *models.Response) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
		var errBody struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil {
			if errBody.Message != "" {
				apiErr.Message = errBody.Message
			} else if errBody.Error != "" {
				apiErr.Message = errBody.Error
			}
		}
		c.log.Warning("api request failed",
			logger.String("endpoint", endpoint),
			logger.Int("status", resp.StatusCode),
			logger.String("message", apiErr.Message),
		)
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("api: decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) SendOTP(ctx context.Context, phoneNumber string) (string, error) {
	var resp models.Response
	err := c.do(ctx, http.MethodPost, "/auth/otp/send", map[string]string{"phoneNumber": phoneNumber}, &resp)
	if err != nil {
		return "", err
	}
	var data struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(resp.Data, &data)
	return data.Message, nil
}

func (c *Client) VerifyOTP(ctx context.Context, phoneNumber, otp string) (*models.AuthResponse, error) {
	var resp models.Response
	err := c.do(ctx, http.MethodPost, "/auth/otp/verify", map[string]string{
		"phoneNumber": phoneNumber,
		"otp":         otp,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return decodeAuth(&resp)
}

func (c *Client) AdminLogin(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	var resp models.Response
	err := c.do(ctx, http.MethodPost, "/auth/admin/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return decodeAuth(&resp)
}

// Me is the identity check. A 401/403 here means the stored token is dead,
// so the auth-failure hook fires before the error is returned.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var resp models.Response
	err := c.do(ctx, http.MethodGet, "/users/me", nil, &resp)
	if err != nil {
		if IsAuthError(err) && c.onAuthFailure != nil {
			c.onAuthFailure()
		}
		return nil, err
	}
	if !resp.Success || len(resp.Data) == 0 {
		return nil, fmt.Errorf("api: invalid identity response")
	}
	var user models.User
	if err := json.Unmarshal(resp.Data, &user); err != nil {
		return nil, fmt.Errorf("api: decode user: %w", err)
	}
	return &user, nil
}

func (c *Client) ListApplications(ctx context.Context, status string) ([]models.DriverApplication, error) {
	endpoint := "/driver-applications"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp models.Response
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	var apps []models.DriverApplication
	if err := json.Unmarshal(resp.Data, &apps); err != nil {
		return nil, fmt.Errorf("api: decode applications: %w", err)
	}
	return apps, nil
}

func (c *Client) ApproveApplication(ctx context.Context, applicationID string) error {
	var resp models.Response
	return c.do(ctx, http.MethodPost, "/driver-applications/"+applicationID+"/approve", nil, &resp)
}

func (c *Client) RejectApplication(ctx context.Context, applicationID, reason string) error {
	var resp models.Response
	return c.do(ctx, http.MethodPost, "/driver-applications/"+applicationID+"/reject", map[string]string{"reason": reason}, &resp)
}

// RefreshOnboarding asks Stripe (through the API) for a fresh onboarding
// link. The payload is double-nested: {data:{data:{onboardingUrl}}}.
func (c *Client) RefreshOnboarding(ctx context.Context, accountID string) (string, error) {
	var resp models.Response
	err := c.do(ctx, http.MethodPost, "/stripe/connect/"+accountID+"/refresh-onboarding", nil, &resp)
	if err != nil {
		return "", err
	}
	var nested struct {
		Data struct {
			OnboardingURL string `json:"onboardingUrl"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Data, &nested); err != nil {
		return "", fmt.Errorf("api: decode onboarding response: %w", err)
	}
	if nested.Data.OnboardingURL == "" {
		return "", fmt.Errorf("api: onboarding response missing url")
	}
	return nested.Data.OnboardingURL, nil
}

func decodeAuth(resp *models.Response) (*models.AuthResponse, error) {
	if !resp.Success || len(resp.Data) == 0 {
		return nil, fmt.Errorf("api: invalid auth response")
	}
	var auth models.AuthResponse
	if err := json.Unmarshal(resp.Data, &auth); err != nil {
		return nil, fmt.Errorf("api: decode auth response: %w", err)
	}
	return &auth, nil
}
