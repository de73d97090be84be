// Package simulated is an in-memory stand-in for the remote account service.
//
// It keeps real TOTP keys, validates real codes and hands enrollment secrets
// out only as otpauth URLs, so a provisioning run against it exercises the
// same code paths as a run against the real thing. Faults can be injected per
// account. It backs dry runs and tests.
package simulated

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/automation"
	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/aussiebroadwan/provision/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// AppPasswordLength matches the length of passwords the real service issues.
const AppPasswordLength = 16

// Faults make specific steps misbehave for one account.
type Faults struct {
	HumanVerification    bool          // login reports a human-verification wall
	EnrollmentUnknown    bool          // enrollment state can't be determined
	BeginEnrollmentFails bool          // the scannable code can't be found
	RejectConfirmation   bool          // confirmation codes are always rejected
	TwoFactorUnknown     bool          // two-factor state can't be determined
	TwoFactorError       bool          // two-factor page shows an error
	EnableTwoFactorFails bool          // the enable toggle does nothing
	AppPasswordFails     bool          // app password page breaks
	Delay                time.Duration // every call for this account takes this long
}

// Account is the remote side's view of one account.
type Account struct {
	Password     string
	TOTPSecret   string
	TwoFactorOn  bool
	AppPasswords map[string]string
	Faults       Faults
}

type session struct {
	id         string
	identifier string
	loggedIn   bool
	challenged bool
	pending    string
	closed     bool
}

func (s *session) ID() string { return s.id }

// Service implements automation.Capability against in-memory accounts.
type Service struct {
	Issuer string
	Now    func() time.Time

	// Retry bounds session setup attempts.
	Retry automation.RetryPolicy

	// SessionFailures makes the next N session setup attempts fail.
	SessionFailures int

	mu          sync.Mutex
	accounts    map[string]*Account
	sessions    map[string]*session
	nextSession int
	calls       map[string]int
	enrollments map[string]int
	open        int
}

var _ automation.Capability = (*Service)(nil)

func New() *Service {
	return &Service{
		Issuer:      "Simulated",
		Now:         time.Now,
		Retry:       automation.RetryPolicy{Attempts: 3},
		accounts:    make(map[string]*Account),
		sessions:    make(map[string]*session),
		calls:       make(map[string]int),
		enrollments: make(map[string]int),
	}
}

// AddAccount registers an account that has nothing set up yet.
func (s *Service) AddAccount(identifier, password string) {
	s.Put(identifier, Account{Password: password})
}

// Put replaces the remote state of an account.
func (s *Service) Put(identifier string, acct Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.AppPasswords == nil {
		acct.AppPasswords = make(map[string]string)
	}
	s.accounts[identifier] = &acct
}

// SetFaults changes the faults of an existing account.
func (s *Service) SetFaults(identifier string, f Faults) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.accounts[identifier]; ok {
		a.Faults = f
	}
}

// Account returns a copy of the remote state.
func (s *Service) Account(identifier string) (Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[identifier]
	if !ok {
		return Account{}, false
	}
	out := *a
	out.AppPasswords = make(map[string]string, len(a.AppPasswords))
	for k, v := range a.AppPasswords {
		out.AppPasswords[k] = v
	}
	return out, true
}

// Calls returns how many times each capability operation was invoked.
func (s *Service) Calls() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.calls))
	for k, v := range s.calls {
		out[k] = v
	}
	return out
}

// TotalCalls is the sum of Calls.
func (s *Service) TotalCalls() int {
	total := 0
	for _, n := range s.Calls() {
		total += n
	}
	return total
}

// Enrollments counts BeginEnrollment calls for an account.
func (s *Service) Enrollments(identifier string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enrollments[identifier]
}

// OpenSessions is the number of sessions not yet closed.
func (s *Service) OpenSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *Service) OpenSession(ctx context.Context, opts automation.SessionOptions) (automation.Session, error) {
	return automation.OpenWithRetry(ctx, s.Retry, s.openOnce)
}

func (s *Service) openOnce(ctx context.Context) (automation.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls["open_session"]++
	if s.SessionFailures > 0 {
		s.SessionFailures--
		return nil, errors.New("simulated browser failed to start")
	}
	s.nextSession++
	sess := &session{id: fmt.Sprintf("sim-%d", s.nextSession)}
	s.sessions[sess.id] = sess
	s.open++
	return sess, nil
}

func (s *Service) Login(ctx context.Context, h automation.Session, identifier, secret string) (automation.LoginOutcome, error) {
	sess, acct, err := s.begin(ctx, "login", h, identifier)
	if err != nil {
		return automation.LoginFailure, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case acct == nil || acct.Password != secret:
		return automation.LoginFailure, automation.ErrBadCredentials
	case acct.Faults.HumanVerification:
		return automation.LoginFailure, automation.ErrHumanVerification
	}

	sess.identifier = identifier
	if acct.TOTPSecret != "" && acct.TwoFactorOn {
		sess.challenged = true
		return automation.LoginChallengeRequired, nil
	}
	sess.loggedIn = true
	return automation.LoginSuccess, nil
}

func (s *Service) AnswerChallenge(ctx context.Context, h automation.Session, code string) (bool, error) {
	sess, acct, err := s.begin(ctx, "answer_challenge", h, "")
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !sess.challenged || acct == nil {
		return false, errors.New("no challenge pending")
	}
	if !s.validate(code, acct.TOTPSecret) {
		return false, nil
	}
	sess.challenged = false
	sess.loggedIn = true
	return true, nil
}

func (s *Service) EnrollmentState(ctx context.Context, h automation.Session) (automation.EnrollmentState, error) {
	_, acct, err := s.beginLoggedIn(ctx, "enrollment_state", h)
	if err != nil {
		return automation.EnrollmentUnknown, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case acct.Faults.EnrollmentUnknown:
		return automation.EnrollmentUnknown, nil
	case acct.TOTPSecret != "":
		return automation.EnrollmentConfigured, nil
	default:
		return automation.EnrollmentNotConfigured, nil
	}
}

func (s *Service) BeginEnrollment(ctx context.Context, h automation.Session) (string, error) {
	sess, acct, err := s.beginLoggedIn(ctx, "begin_enrollment", h)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.enrollments[sess.identifier]++
	if acct.Faults.BeginEnrollmentFails {
		s.mu.Unlock()
		return "", domain.Fail(domain.ErrEnrollmentUI, errors.New("scannable code not found"))
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: sess.identifier,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		s.mu.Unlock()
		return "", domain.Fail(domain.ErrEnrollmentUI, err)
	}
	sess.pending = key.Secret()
	payload := key.URL()
	s.mu.Unlock()

	// The only thing a page shows is the scannable code
	return automation.SecretFromOTPAuthURL(payload)
}

func (s *Service) ConfirmEnrollment(ctx context.Context, h automation.Session, code string) (bool, error) {
	sess, acct, err := s.beginLoggedIn(ctx, "confirm_enrollment", h)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.pending == "" {
		return false, errors.New("no enrollment in progress")
	}
	if acct.Faults.RejectConfirmation || !s.validate(code, sess.pending) {
		return false, nil
	}
	acct.TOTPSecret = sess.pending
	sess.pending = ""
	return true, nil
}

func (s *Service) TwoFactorState(ctx context.Context, h automation.Session) (automation.TwoFactorState, error) {
	_, acct, err := s.beginLoggedIn(ctx, "two_factor_state", h)
	if err != nil {
		return automation.TwoFactorUnknown, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case acct.Faults.TwoFactorError:
		return automation.TwoFactorError, nil
	case acct.Faults.TwoFactorUnknown:
		return automation.TwoFactorUnknown, nil
	case acct.TwoFactorOn:
		return automation.TwoFactorOn, nil
	default:
		return automation.TwoFactorOff, nil
	}
}

func (s *Service) EnableTwoFactor(ctx context.Context, h automation.Session) (bool, error) {
	_, acct, err := s.beginLoggedIn(ctx, "enable_two_factor", h)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.Faults.EnableTwoFactorFails || acct.TOTPSecret == "" {
		return false, nil
	}
	acct.TwoFactorOn = true
	return true, nil
}

func (s *Service) IssueAppPassword(ctx context.Context, h automation.Session, label string) (string, error) {
	_, acct, err := s.beginLoggedIn(ctx, "issue_app_password", h)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.Faults.AppPasswordFails {
		return "", domain.Fail(domain.ErrAppPasswordUI, errors.New("app password page unavailable"))
	}
	if !acct.TwoFactorOn {
		return "", domain.Fail(domain.ErrAppPasswordUI, errors.New("app passwords require two-factor"))
	}

	pw, err := cryptox.RandomString(cryptox.LowerAlpha, AppPasswordLength)
	if err != nil {
		return "", domain.Fail(domain.ErrAppPasswordUI, err)
	}
	acct.AppPasswords[label] = pw
	return pw, nil
}

func (s *Service) CloseSession(_ context.Context, h automation.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls["close_session"]++
	sess, ok := s.sessions[h.ID()]
	if !ok || sess.closed {
		return nil
	}
	sess.closed = true
	s.open--
	return nil
}

// begin records the call, resolves the session and account and applies any
// configured delay. identifier is only used before login binds the session.
func (s *Service) begin(ctx context.Context, op string, h automation.Session, identifier string) (*session, *Account, error) {
	s.mu.Lock()
	s.calls[op]++
	sess, ok := s.sessions[h.ID()]
	if !ok || sess.closed {
		s.mu.Unlock()
		return nil, nil, automation.ErrSessionClosed
	}
	if identifier == "" {
		identifier = sess.identifier
	}
	acct := s.accounts[identifier]
	var delay time.Duration
	if acct != nil {
		delay = acct.Faults.Delay
	}
	s.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return sess, acct, nil
}

func (s *Service) beginLoggedIn(ctx context.Context, op string, h automation.Session) (*session, *Account, error) {
	sess, acct, err := s.begin(ctx, op, h, "")
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !sess.loggedIn || acct == nil {
		return nil, nil, errors.New("not logged in")
	}
	return sess, acct, nil
}

// AcceptsMailLogin reports whether password opens identifier's mailbox. Any
// issued app password works; otherwise the account password is needed, with
// a current TOTP code appended once two-factor is on.
func (s *Service) AcceptsMailLogin(identifier, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[identifier]
	if !ok {
		return false
	}
	for _, pw := range acct.AppPasswords {
		if pw == password {
			return true
		}
	}
	if !acct.TwoFactorOn {
		return password == acct.Password
	}
	code, ok := strings.CutPrefix(password, acct.Password)
	return ok && acct.TOTPSecret != "" && s.validate(code, acct.TOTPSecret)
}

// validate must be called with mu held.
func (s *Service) validate(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, s.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
