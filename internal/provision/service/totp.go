package service

import (
	"fmt"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/automation"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPPeriod is the code lifetime used by every supported service.
const TOTPPeriod = 30

// Code is a time-based code together with how long it stays valid.
type Code struct {
	Code      string    `json:"code"`
	Remaining int       `json:"remaining_seconds"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GenerateCode derives the current six-digit code from a base32 secret.
// Grouping spaces and lower case are tolerated.
func GenerateCode(secret string, t time.Time) (Code, error) {
	secret = automation.NormalizeSecret(secret)
	code, err := totp.GenerateCodeCustom(secret, t, totp.ValidateOpts{
		Period:    TOTPPeriod,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return Code{}, fmt.Errorf("failed to generate code: %w", err)
	}

	remaining := TOTPPeriod - int(t.Unix()%TOTPPeriod)
	return Code{
		Code:      code,
		Remaining: remaining,
		ExpiresAt: t.Truncate(time.Second).Add(time.Duration(remaining) * time.Second),
	}, nil
}
