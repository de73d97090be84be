package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/provision/internal/provision/automation"
	"github.com/aussiebroadwan/provision/internal/provision/domain"
)

type session struct{ id string }

func (s session) ID() string { return s.id }

// Driver implements automation.Capability on top of the sidecar API.
type Driver struct {
	Client *Client
	Retry  automation.RetryPolicy
}

var _ automation.Capability = (*Driver)(nil)

func NewDriver(baseURL string) *Driver {
	return &Driver{
		Client: NewClient(baseURL),
		Retry:  automation.DefaultRetryPolicy,
	}
}

type openSessionRequest struct {
	Headless   bool   `json:"headless"`
	ProfileDir string `json:"profile_dir,omitempty"`
}

type openSessionResponse struct {
	SessionID string `json:"session_id"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type loginResponse struct {
	Outcome string `json:"outcome"` // success | challenge_required | failure
	Reason  string `json:"reason,omitempty"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type acceptedResponse struct {
	Accepted bool `json:"accepted"`
}

type stateResponse struct {
	State string `json:"state"`
}

type enrollmentResponse struct {
	// OTPAuthURL is the decoded payload of the displayed scannable code.
	OTPAuthURL string `json:"otpauth_url,omitempty"`
	// Secret is set when the sidecar read the text fallback instead.
	Secret string `json:"secret,omitempty"`
}

type enabledResponse struct {
	Enabled bool `json:"enabled"`
}

type appPasswordRequest struct {
	Label string `json:"label"`
}

type appPasswordResponse struct {
	Password string `json:"password"`
}

func sessionPath(s automation.Session, suffix string) string {
	return "/v1/sessions/" + url.PathEscape(s.ID()) + suffix
}

func (d *Driver) OpenSession(ctx context.Context, opts automation.SessionOptions) (automation.Session, error) {
	return automation.OpenWithRetry(ctx, d.Retry, func(ctx context.Context) (automation.Session, error) {
		var resp openSessionResponse
		err := d.Client.do(ctx, http.MethodPost, "/v1/sessions",
			openSessionRequest{Headless: opts.Headless, ProfileDir: opts.ProfileDir}, &resp)
		if err != nil {
			return nil, err
		}
		if resp.SessionID == "" {
			return nil, fmt.Errorf("sidecar returned no session id")
		}
		return session{id: resp.SessionID}, nil
	})
}

func (d *Driver) Login(ctx context.Context, s automation.Session, identifier, secret string) (automation.LoginOutcome, error) {
	var resp loginResponse
	if err := d.Client.do(ctx, http.MethodPost, sessionPath(s, "/login"),
		loginRequest{Identifier: identifier, Secret: secret}, &resp); err != nil {
		return automation.LoginFailure, err
	}

	switch resp.Outcome {
	case "success":
		return automation.LoginSuccess, nil
	case "challenge_required":
		return automation.LoginChallengeRequired, nil
	}

	switch resp.Reason {
	case ErrorCodeBadCredentials:
		return automation.LoginFailure, automation.ErrBadCredentials
	case ErrorCodeUnexpectedChallenge:
		return automation.LoginFailure, automation.ErrUnexpectedChallenge
	case ErrorCodeHumanVerification:
		return automation.LoginFailure, automation.ErrHumanVerification
	default:
		return automation.LoginFailure, fmt.Errorf("login failed: %s", resp.Reason)
	}
}

func (d *Driver) AnswerChallenge(ctx context.Context, s automation.Session, code string) (bool, error) {
	var resp acceptedResponse
	err := d.Client.do(ctx, http.MethodPost, sessionPath(s, "/challenge"), codeRequest{Code: code}, &resp)
	return resp.Accepted, err
}

func (d *Driver) EnrollmentState(ctx context.Context, s automation.Session) (automation.EnrollmentState, error) {
	var resp stateResponse
	if err := d.Client.do(ctx, http.MethodGet, sessionPath(s, "/enrollment"), nil, &resp); err != nil {
		return automation.EnrollmentUnknown, err
	}

	switch resp.State {
	case "configured":
		return automation.EnrollmentConfigured, nil
	case "not_configured":
		return automation.EnrollmentNotConfigured, nil
	default:
		return automation.EnrollmentUnknown, nil
	}
}

func (d *Driver) BeginEnrollment(ctx context.Context, s automation.Session) (string, error) {
	var resp enrollmentResponse
	if err := d.Client.do(ctx, http.MethodPost, sessionPath(s, "/enrollment"), nil, &resp); err != nil {
		return "", domain.Fail(domain.ErrEnrollmentUI, err)
	}

	payload := resp.OTPAuthURL
	if payload == "" {
		payload = resp.Secret
	}
	return automation.SecretFromOTPAuthURL(payload)
}

func (d *Driver) ConfirmEnrollment(ctx context.Context, s automation.Session, code string) (bool, error) {
	var resp acceptedResponse
	err := d.Client.do(ctx, http.MethodPost, sessionPath(s, "/enrollment/confirm"), codeRequest{Code: code}, &resp)
	return resp.Accepted, err
}

func (d *Driver) TwoFactorState(ctx context.Context, s automation.Session) (automation.TwoFactorState, error) {
	var resp stateResponse
	if err := d.Client.do(ctx, http.MethodGet, sessionPath(s, "/two-factor"), nil, &resp); err != nil {
		return automation.TwoFactorError, err
	}

	switch resp.State {
	case "on":
		return automation.TwoFactorOn, nil
	case "off":
		return automation.TwoFactorOff, nil
	case "error":
		return automation.TwoFactorError, nil
	default:
		return automation.TwoFactorUnknown, nil
	}
}

func (d *Driver) EnableTwoFactor(ctx context.Context, s automation.Session) (bool, error) {
	var resp enabledResponse
	err := d.Client.do(ctx, http.MethodPost, sessionPath(s, "/two-factor"), nil, &resp)
	return resp.Enabled, err
}

func (d *Driver) IssueAppPassword(ctx context.Context, s automation.Session, label string) (string, error) {
	var resp appPasswordResponse
	if err := d.Client.do(ctx, http.MethodPost, sessionPath(s, "/app-passwords"),
		appPasswordRequest{Label: label}, &resp); err != nil {
		return "", domain.Fail(domain.ErrAppPasswordUI, err)
	}
	if resp.Password == "" {
		return "", domain.Fail(domain.ErrAppPasswordUI, fmt.Errorf("sidecar returned an empty password"))
	}
	return resp.Password, nil
}

// CloseSession treats an unknown session as already closed.
func (d *Driver) CloseSession(ctx context.Context, s automation.Session) error {
	err := d.Client.do(ctx, http.MethodDelete, sessionPath(s, ""), nil, nil)
	if IsAPIError(err, ErrorCodeSessionNotFound) {
		return nil
	}
	return err
}
