package domain

import (
	"time"
)

// TimestampLayout is the human-readable layout used for record timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string { return t.Format(TimestampLayout) }

// AppPassword is a service-issued password scoped to a single application label.
type AppPassword struct {
	Password  string `json:"password"`
	CreatedAt string `json:"created_at"`
}

// SecurityRecord is everything the orchestrator persists for one account.
//
// The JSON field names are the on-disk contract read by other tooling, so they
// must not change. Values are stored in plaintext unless the store is
// configured with a sealing key.
type SecurityRecord struct {
	TOTPSecret   string                 `json:"setup_key,omitempty"`
	AppPasswords map[string]AppPassword `json:"app_passwords,omitempty"`
	BackupCodes  []string               `json:"backup_codes,omitempty"`
	CreatedAt    string                 `json:"created_at,omitempty"`
	UpdatedAt    string                 `json:"updated_at,omitempty"`
}

// HasTOTPSecret reports whether enrollment has been recorded.
func (r SecurityRecord) HasTOTPSecret() bool { return r.TOTPSecret != "" }

// HasAppPassword reports whether at least one app password has been recorded.
func (r SecurityRecord) HasAppPassword() bool { return len(r.AppPasswords) > 0 }

// Status classifies the record. See Status for the rules.
func (r SecurityRecord) Status() Status {
	switch {
	case r.HasTOTPSecret() && r.HasAppPassword():
		return StatusComplete
	case r.HasTOTPSecret():
		return StatusPartial
	default:
		return StatusNotStarted
	}
}

// SetTOTPSecret records secret. Setting the same value again is a no-op; an
// existing different value is never replaced and ErrSecretConflict is returned.
func (r *SecurityRecord) SetTOTPSecret(secret string) error {
	if r.TOTPSecret != "" && r.TOTPSecret != secret {
		return ErrSecretConflict
	}
	r.TOTPSecret = secret
	return nil
}

// ReplaceTOTPSecret overwrites any existing secret and returns the previous one.
// Callers are expected to log the replacement.
func (r *SecurityRecord) ReplaceTOTPSecret(secret string) (previous string) {
	previous = r.TOTPSecret
	r.TOTPSecret = secret
	return previous
}

// PutAppPassword stores password under label, overwriting any previous value.
func (r *SecurityRecord) PutAppPassword(label, password string, issuedAt time.Time) {
	if r.AppPasswords == nil {
		r.AppPasswords = make(map[string]AppPassword)
	}
	r.AppPasswords[label] = AppPassword{
		Password:  password,
		CreatedAt: FormatTimestamp(issuedAt),
	}
}

// Touch stamps the mutation time, setting CreatedAt on first write.
func (r *SecurityRecord) Touch(now time.Time) {
	ts := FormatTimestamp(now)
	if r.CreatedAt == "" {
		r.CreatedAt = ts
	}
	r.UpdatedAt = ts
}

// Clone returns a deep copy so callers can't mutate shared maps.
func (r SecurityRecord) Clone() SecurityRecord {
	out := r
	if r.AppPasswords != nil {
		out.AppPasswords = make(map[string]AppPassword, len(r.AppPasswords))
		for k, v := range r.AppPasswords {
			out.AppPasswords[k] = v
		}
	}
	if r.BackupCodes != nil {
		out.BackupCodes = append([]string(nil), r.BackupCodes...)
	}
	return out
}

// Status is the idempotency classification of an account.
type Status string

const (
	// StatusComplete has a TOTP secret and at least one app password.
	StatusComplete Status = "complete"
	// StatusPartial has a TOTP secret but no app password yet.
	StatusPartial Status = "partial"
	// StatusNotStarted has no record, or a record without a TOTP secret.
	StatusNotStarted Status = "not_started"
)

// Label is a short human-readable description for display.
func (s Status) Label() string {
	switch s {
	case StatusComplete:
		return "Complete"
	case StatusPartial:
		return "Needs app password"
	default:
		return "Not set up"
	}
}

// StatusOf classifies an optional record.
func StatusOf(rec SecurityRecord, ok bool) Status {
	if !ok {
		return StatusNotStarted
	}
	return rec.Status()
}
