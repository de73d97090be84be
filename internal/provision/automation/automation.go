// Package automation defines the boundary to the remote interactive surface.
//
// A Capability drives one account's security settings through an automation
// session (typically a browser). Everything about how controls are found or
// how flaky pages are retried belongs to the implementation; callers only see
// the small closed enumerations below.
package automation

import (
	"context"
	"errors"
)

// Session is an opaque handle owned by exactly one job.
type Session interface {
	ID() string
}

// SessionOptions controls how a session is opened.
type SessionOptions struct {
	Headless bool
	// ProfileDir isolates per-session state (cookies, cache) so concurrent
	// jobs never see each other. Empty lets the driver pick a fresh one.
	ProfileDir string
}

// LoginOutcome is the result of submitting credentials.
type LoginOutcome int

const (
	LoginFailure LoginOutcome = iota
	LoginSuccess
	LoginChallengeRequired
)

func (o LoginOutcome) String() string {
	switch o {
	case LoginSuccess:
		return "success"
	case LoginChallengeRequired:
		return "challenge_required"
	default:
		return "failure"
	}
}

// EnrollmentState is the remote one-time-password enrollment state.
type EnrollmentState int

const (
	EnrollmentUnknown EnrollmentState = iota
	EnrollmentConfigured
	EnrollmentNotConfigured
)

func (s EnrollmentState) String() string {
	switch s {
	case EnrollmentConfigured:
		return "configured"
	case EnrollmentNotConfigured:
		return "not_configured"
	default:
		return "unknown"
	}
}

// TwoFactorState is the remote two-factor setting.
type TwoFactorState int

const (
	TwoFactorUnknown TwoFactorState = iota
	TwoFactorOn
	TwoFactorOff
	TwoFactorError
)

func (s TwoFactorState) String() string {
	switch s {
	case TwoFactorOn:
		return "on"
	case TwoFactorOff:
		return "off"
	case TwoFactorError:
		return "error"
	default:
		return "unknown"
	}
}

// Login failure detail. A Capability returns LoginFailure together with one
// of these (or another error) to explain why.
var (
	ErrBadCredentials      = errors.New("automation: bad credentials")
	ErrUnexpectedChallenge = errors.New("automation: unexpected challenge type")
	ErrHumanVerification   = errors.New("automation: human verification required")
	ErrSessionClosed       = errors.New("automation: session closed")
)

// Capability is everything the provisioner needs from the remote side.
// Every call may block on the network and must honour ctx.
type Capability interface {
	// OpenSession fails with domain.ErrSessionInit once setup attempts are exhausted.
	OpenSession(ctx context.Context, opts SessionOptions) (Session, error)

	Login(ctx context.Context, s Session, identifier, secret string) (LoginOutcome, error)
	AnswerChallenge(ctx context.Context, s Session, code string) (bool, error)

	EnrollmentState(ctx context.Context, s Session) (EnrollmentState, error)
	// BeginEnrollment returns the shared secret decoded from the displayed
	// scannable code, or fails with domain.ErrEnrollmentUI.
	BeginEnrollment(ctx context.Context, s Session) (string, error)
	ConfirmEnrollment(ctx context.Context, s Session, code string) (bool, error)

	TwoFactorState(ctx context.Context, s Session) (TwoFactorState, error)
	EnableTwoFactor(ctx context.Context, s Session) (bool, error)

	// IssueAppPassword fails with domain.ErrAppPasswordUI.
	IssueAppPassword(ctx context.Context, s Session, label string) (string, error)

	// CloseSession is idempotent.
	CloseSession(ctx context.Context, s Session) error
}
