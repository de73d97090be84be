package domain

import (
	"errors"
	"fmt"
)

// Failure reasons. A provisioning failure wraps exactly one reason together
// with its underlying cause, so both can be matched with errors.Is.
var (
	ErrSessionInit                  = errors.New("session init failed")
	ErrLoginFailure                 = errors.New("login failed")
	ErrChallengeRejected            = errors.New("challenge rejected")
	ErrNoEnrollmentSecret           = errors.New("no enrollment secret stored")
	ErrEnrollmentUI                 = errors.New("enrollment ui error")
	ErrEnrollmentStateIndeterminate = errors.New("enrollment state indeterminate")
	ErrEnrollmentVerificationFailed = errors.New("enrollment verification failed")
	ErrTwoFactorStateIndeterminate  = errors.New("two-factor state indeterminate")
	ErrTwoFactorEnableFailed        = errors.New("two-factor enable failed")
	ErrAppPasswordUI                = errors.New("app password ui error")
	ErrAppPasswordIssueFailed       = errors.New("app password issue failed")
	ErrStoreIO                      = errors.New("store io error")

	ErrSecretConflict = errors.New("totp secret already set to a different value")
	ErrStepTimeout    = errors.New("step timed out")
	ErrCancelled      = errors.New("cancelled")
)

// Fail wraps cause with reason. A nil cause yields the bare reason.
func Fail(reason, cause error) error {
	switch {
	case cause == nil:
		return reason
	case errors.Is(cause, reason):
		return cause
	default:
		return fmt.Errorf("%w: %w", reason, cause)
	}
}

var reasons = []error{
	ErrSessionInit,
	ErrLoginFailure,
	ErrChallengeRejected,
	ErrNoEnrollmentSecret,
	ErrEnrollmentUI,
	ErrEnrollmentStateIndeterminate,
	ErrEnrollmentVerificationFailed,
	ErrTwoFactorStateIndeterminate,
	ErrTwoFactorEnableFailed,
	ErrAppPasswordIssueFailed,
	ErrAppPasswordUI,
	ErrStoreIO,
	ErrStepTimeout,
	ErrCancelled,
}

// Reason returns the first known failure reason in err's chain, or nil.
func Reason(err error) error {
	for _, r := range reasons {
		if errors.Is(err, r) {
			return r
		}
	}
	return nil
}
