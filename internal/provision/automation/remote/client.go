// Package remote drives the automation sidecar: a separate process that owns
// real browser sessions and exposes each capability call as a JSON endpoint.
package remote

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

	"github.com/aussiebroadwan/provision/internal/provision/automation"
	"github.com/aussiebroadwan/provision/internal/provision/domain"
)

// Error codes returned by the sidecar in the "error" field.
const (
	ErrorCodeBadCredentials      = "bad_credentials"
	ErrorCodeUnexpectedChallenge = "unexpected_challenge"
	ErrorCodeHumanVerification   = "human_verification"
	ErrorCodeSessionInit         = "session_init_failed"
	ErrorCodeSessionNotFound     = "session_not_found"
	ErrorCodeEnrollmentUI        = "enrollment_ui_error"
	ErrorCodeAppPasswordUI       = "app_password_ui_error"
	ErrorCodeElementNotFound     = "element_not_found"
	ErrorCodeServerError         = "server_error"
)

// APIError is the error body the sidecar returns on any non-2xx response.
type APIError struct {
	StatusCode       int    `json:"-"`
	Code             string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func (e *APIError) Error() string {
	if e.ErrorDescription != "" {
		return fmt.Sprintf("sidecar %d %s: %s", e.StatusCode, e.Code, e.ErrorDescription)
	}
	return fmt.Sprintf("sidecar %d %s", e.StatusCode, e.Code)
}

// Unwrap maps sidecar codes onto the shared error taxonomy.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case ErrorCodeBadCredentials:
		return automation.ErrBadCredentials
	case ErrorCodeUnexpectedChallenge:
		return automation.ErrUnexpectedChallenge
	case ErrorCodeHumanVerification:
		return automation.ErrHumanVerification
	case ErrorCodeSessionInit:
		return domain.ErrSessionInit
	case ErrorCodeSessionNotFound:
		return automation.ErrSessionClosed
	case ErrorCodeEnrollmentUI:
		return domain.ErrEnrollmentUI
	case ErrorCodeAppPasswordUI:
		return domain.ErrAppPasswordUI
	default:
		return nil
	}
}

// Client is a thin JSON client for the sidecar API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	// Token, when set, is sent as a bearer token on every request.
	Token string
}

// NewClient creates a client with a generous timeout; page loads are slow.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// do sends body as JSON and decodes a 2xx response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func parseError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = ErrorCodeServerError
		apiErr.ErrorDescription = strings.TrimSpace(string(body))
	}
	return apiErr
}

// IsAPIError reports whether err carries a sidecar error with the given code.
func IsAPIError(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
