package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/automation"
	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/aussiebroadwan/provision/internal/provision/store"
	"github.com/aussiebroadwan/provision/pkg/cryptox"
	"github.com/aussiebroadwan/provision/pkg/idx"
	"github.com/aussiebroadwan/provision/pkg/slogx"
)

const (
	DefaultStepTimeout  = 2 * time.Minute
	DefaultCloseTimeout = 30 * time.Second
)

// State is a step of the per-account provisioning state machine.
type State int

const (
	StateInit State = iota
	StateLoggingIn
	StateChallengePending
	StateChallengeSolved
	StateLoginFailed
	StateLoggedIn
	StateCheckingEnrollment
	StateEnrollmentConfigured
	StateSettingUpEnrollment
	StateEnrollmentDone
	StateCheckingTwoFactor
	StateEnablingTwoFactor
	StateTwoFactorOn
	StateIssuingAppPassword
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateInit:                 "init",
	StateLoggingIn:            "logging_in",
	StateChallengePending:     "challenge_pending",
	StateChallengeSolved:      "challenge_solved",
	StateLoginFailed:          "login_failed",
	StateLoggedIn:             "logged_in",
	StateCheckingEnrollment:   "checking_enrollment",
	StateEnrollmentConfigured: "enrollment_configured",
	StateSettingUpEnrollment:  "setting_up_enrollment",
	StateEnrollmentDone:       "enrollment_done",
	StateCheckingTwoFactor:    "checking_two_factor",
	StateEnablingTwoFactor:    "enabling_two_factor",
	StateTwoFactorOn:          "two_factor_on",
	StateIssuingAppPassword:   "issuing_app_password",
	StateDone:                 "done",
	StateFailed:               "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// Run is the record of one account's pass through the state machine.
type Run struct {
	Identifier string
	Label      string
	State      State
	// FailedIn is the last non-terminal state when the run failed.
	FailedIn   State
	Trace      []State
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r *Run) enter(s State) {
	r.State = s
	r.Trace = append(r.Trace, s)
}

// Visited reports whether the run passed through s.
func (r *Run) Visited(s State) bool {
	for _, v := range r.Trace {
		if v == s {
			return true
		}
	}
	return false
}

// Message is the one line shown for this run in a report.
func (r *Run) Message() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return fmt.Sprintf("app password %q issued", r.Label)
}

// Provisioner drives a single account from whatever state it is in to
// two-factor on with an app password recorded.
type Provisioner struct {
	Automation automation.Capability
	Store      store.CredentialStore

	Headless bool
	// ProfileRoot, when set, gives every session its own profile directory
	// below it.
	ProfileRoot  string
	StepTimeout  time.Duration
	CloseTimeout time.Duration
	Now          func() time.Time
}

// job carries the state of one Provision call.
type job struct {
	run     *Run
	account domain.Account
	session automation.Session
	logger  *slog.Logger
	// base is detached from cancellation: in-flight steps finish and their
	// results are persisted, cancellation is observed between steps.
	base context.Context
}

// Provision runs the state machine for account. The returned Run is never
// nil; the error is the run's failure, if any.
func (p *Provisioner) Provision(ctx context.Context, account domain.Account, label string) (*Run, error) {
	if label == "" {
		label = domain.DefaultAppPasswordLabel
	}

	ctx = slogx.WithAccount(ctx, account.Identifier)
	j := &job{
		run: &Run{
			Identifier: account.Identifier,
			Label:      label,
			StartedAt:  p.now(),
		},
		account: account,
		logger:  slogx.FromContext(ctx),
		base:    context.WithoutCancel(ctx),
	}
	j.run.enter(StateInit)

	err := p.provision(ctx, j)
	if err != nil {
		j.run.FailedIn = j.run.State
		j.run.Err = err
		j.run.enter(StateFailed)
		j.logger.Error("provisioning failed",
			"state", j.run.FailedIn.String(),
			"reason", reasonString(err),
			"error", err,
		)
	} else {
		j.run.enter(StateDone)
		j.logger.Info("provisioning complete", "label", label)
	}
	j.run.FinishedAt = p.now()

	return j.run, err
}

func (p *Provisioner) provision(ctx context.Context, j *job) error {
	if err := ctx.Err(); err != nil {
		return domain.Fail(domain.ErrCancelled, err)
	}

	open := func(ctx context.Context) (automation.Session, error) {
		return p.Automation.OpenSession(ctx, automation.SessionOptions{
			Headless:   p.Headless,
			ProfileDir: p.profileDir(j.account.Identifier),
		})
	}
	late := func(s automation.Session) {
		if s == nil {
			return
		}
		j.logger.Warn("session opened after step timeout", "session", s.ID())
		p.closeSession(j.base, j.logger, s)
	}
	session, err := stepOrRelease(j.base, p.stepTimeout(), open, late)
	if err != nil {
		return domain.Fail(domain.ErrSessionInit, err)
	}
	j.session = session
	j.logger.Debug("session opened", "session", session.ID())
	defer p.closeSession(j.base, j.logger, session)

	steps := []func(*job) error{
		p.login,
		p.ensureEnrollment,
		p.ensureTwoFactor,
		p.issueAppPassword,
	}
	for _, fn := range steps {
		if err := ctx.Err(); err != nil {
			return domain.Fail(domain.ErrCancelled, err)
		}
		if err := fn(j); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) login(j *job) error {
	j.run.enter(StateLoggingIn)

	outcome, err := step(j.base, p.stepTimeout(), func(ctx context.Context) (automation.LoginOutcome, error) {
		return p.Automation.Login(ctx, j.session, j.account.Identifier, j.account.Secret)
	})
	if err == nil && outcome == automation.LoginFailure {
		err = errors.New("login rejected")
	}
	if err != nil {
		j.run.enter(StateLoginFailed)
		return domain.Fail(domain.ErrLoginFailure, err)
	}

	if outcome == automation.LoginChallengeRequired {
		j.run.enter(StateChallengePending)
		if err := p.answerChallenge(j); err != nil {
			return err
		}
		j.run.enter(StateChallengeSolved)
	}

	j.run.enter(StateLoggedIn)
	return nil
}

func (p *Provisioner) answerChallenge(j *job) error {
	rec, ok, err := p.Store.Get(j.base, j.account.Identifier)
	if err != nil {
		return domain.Fail(domain.ErrNoEnrollmentSecret, err)
	}
	if !ok || !rec.HasTOTPSecret() {
		return domain.ErrNoEnrollmentSecret
	}

	code, err := GenerateCode(rec.TOTPSecret, p.now())
	if err != nil {
		return domain.Fail(domain.ErrChallengeRejected, err)
	}

	accepted, err := step(j.base, p.stepTimeout(), func(ctx context.Context) (bool, error) {
		return p.Automation.AnswerChallenge(ctx, j.session, code.Code)
	})
	if err == nil && !accepted {
		err = errors.New("code not accepted")
	}
	if err != nil {
		return domain.Fail(domain.ErrChallengeRejected, err)
	}
	return nil
}

func (p *Provisioner) ensureEnrollment(j *job) error {
	j.run.enter(StateCheckingEnrollment)

	state, err := step(j.base, p.stepTimeout(), func(ctx context.Context) (automation.EnrollmentState, error) {
		return p.Automation.EnrollmentState(ctx, j.session)
	})
	if err != nil {
		return domain.Fail(domain.ErrEnrollmentStateIndeterminate, err)
	}

	switch state {
	case automation.EnrollmentConfigured:
		j.run.enter(StateEnrollmentConfigured)
		rec, ok, err := p.Store.Get(j.base, j.account.Identifier)
		if err == nil && (!ok || !rec.HasTOTPSecret()) {
			j.logger.Warn("authenticator enrolled remotely but no secret is stored")
		}
		return nil
	case automation.EnrollmentNotConfigured:
		return p.enroll(j)
	default:
		return domain.Fail(domain.ErrEnrollmentStateIndeterminate, fmt.Errorf("remote reported %s", state))
	}
}

func (p *Provisioner) enroll(j *job) error {
	j.run.enter(StateSettingUpEnrollment)

	secret, err := step(j.base, p.stepTimeout(), func(ctx context.Context) (string, error) {
		return p.Automation.BeginEnrollment(ctx, j.session)
	})
	if err != nil {
		return domain.Fail(domain.ErrEnrollmentUI, err)
	}
	secret = automation.NormalizeSecret(secret)

	// Persist before confirming so an interrupted run can still answer the
	// challenge next time.
	if err := p.storeSecret(j, secret); err != nil {
		return err
	}

	code, err := GenerateCode(secret, p.now())
	if err != nil {
		return domain.Fail(domain.ErrEnrollmentVerificationFailed, err)
	}

	ok, err := step(j.base, p.stepTimeout(), func(ctx context.Context) (bool, error) {
		return p.Automation.ConfirmEnrollment(ctx, j.session, code.Code)
	})
	if err == nil && !ok {
		err = errors.New("code not accepted")
	}
	if err != nil {
		return domain.Fail(domain.ErrEnrollmentVerificationFailed, err)
	}

	j.run.enter(StateEnrollmentDone)
	return nil
}

func (p *Provisioner) storeSecret(j *job, secret string) error {
	var previous string
	err := p.Store.ApplyUpdate(j.base, j.account.Identifier, func(rec *domain.SecurityRecord) error {
		previous = ""
		if err := rec.SetTOTPSecret(secret); errors.Is(err, domain.ErrSecretConflict) {
			// The remote has no authenticator, so the stored secret is stale.
			previous = rec.ReplaceTOTPSecret(secret)
		} else if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Fail(domain.ErrStoreIO, err)
	}

	if previous != "" {
		j.logger.Warn("replaced stale totp secret",
			"previous_fingerprint", cryptox.FingerprintToken(previous),
			"fingerprint", cryptox.FingerprintToken(secret),
		)
	} else {
		j.logger.Info("totp secret stored")
	}
	return nil
}

func (p *Provisioner) ensureTwoFactor(j *job) error {
	j.run.enter(StateCheckingTwoFactor)

	state, err := step(j.base, p.stepTimeout(), func(ctx context.Context) (automation.TwoFactorState, error) {
		return p.Automation.TwoFactorState(ctx, j.session)
	})
	if err != nil {
		return domain.Fail(domain.ErrTwoFactorStateIndeterminate, err)
	}

	switch state {
	case automation.TwoFactorOn:
	case automation.TwoFactorOff:
		j.run.enter(StateEnablingTwoFactor)
		ok, err := step(j.base, p.stepTimeout(), func(ctx context.Context) (bool, error) {
			return p.Automation.EnableTwoFactor(ctx, j.session)
		})
		if err == nil && !ok {
			err = errors.New("setting did not change")
		}
		if err != nil {
			return domain.Fail(domain.ErrTwoFactorEnableFailed, err)
		}
		j.logger.Info("two-factor enabled")
	default:
		return domain.Fail(domain.ErrTwoFactorStateIndeterminate, fmt.Errorf("remote reported %s", state))
	}

	j.run.enter(StateTwoFactorOn)
	return nil
}

func (p *Provisioner) issueAppPassword(j *job) error {
	j.run.enter(StateIssuingAppPassword)

	password, err := step(j.base, p.stepTimeout(), func(ctx context.Context) (string, error) {
		return p.Automation.IssueAppPassword(ctx, j.session, j.run.Label)
	})
	if err == nil && password == "" {
		err = errors.New("empty password")
	}
	if err != nil {
		return domain.Fail(domain.ErrAppPasswordIssueFailed, err)
	}

	issuedAt := p.now()
	err = p.Store.ApplyUpdate(j.base, j.account.Identifier, func(rec *domain.SecurityRecord) error {
		rec.PutAppPassword(j.run.Label, password, issuedAt)
		return nil
	})
	if err != nil {
		// The password exists remotely but is not recorded.
		return domain.Fail(domain.ErrStoreIO, err)
	}
	return nil
}

// closeSession runs exactly once per opened session, even after cancellation.
func (p *Provisioner) closeSession(base context.Context, logger *slog.Logger, session automation.Session) {
	timeout := p.CloseTimeout
	if timeout <= 0 {
		timeout = DefaultCloseTimeout
	}
	ctx, cancel := context.WithTimeout(base, timeout)
	defer cancel()

	if err := p.Automation.CloseSession(ctx, session); err != nil {
		logger.Warn("failed to close session", "session", session.ID(), "error", err)
		return
	}
	logger.Debug("session closed", "session", session.ID())
}

func (p *Provisioner) profileDir(identifier string) string {
	if p.ProfileRoot == "" {
		return ""
	}
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, identifier)
	return filepath.Join(p.ProfileRoot, safe+"-"+idx.New().String())
}

func (p *Provisioner) stepTimeout() time.Duration {
	if p.StepTimeout <= 0 {
		return DefaultStepTimeout
	}
	return p.StepTimeout
}

func (p *Provisioner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// step bounds a single capability call. A call that outlives the timeout is
// abandoned and reported as domain.ErrStepTimeout.
func step[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	return stepOrRelease(ctx, timeout, fn, nil)
}

// stepOrRelease is step for calls that acquire something. When the call is
// abandoned, a value it still returns successfully is handed to release.
func stepOrRelease[T any](
	ctx context.Context,
	timeout time.Duration,
	fn func(context.Context) (T, error),
	release func(T),
) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			r.err = domain.Fail(domain.ErrStepTimeout, r.err)
		}
		return r.v, r.err
	case <-ctx.Done():
		if release != nil {
			go func() {
				if r := <-ch; r.err == nil {
					release(r.v)
				}
			}()
		}
		var zero T
		return zero, fmt.Errorf("%w after %s", domain.ErrStepTimeout, timeout)
	}
}

func reasonString(err error) string {
	if r := domain.Reason(err); r != nil {
		return r.Error()
	}
	return "unknown"
}
