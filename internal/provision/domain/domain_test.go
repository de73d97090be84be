package domain_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/stretchr/testify/require"
)

func TestParseAccounts(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"alice@example.com|hunter2",
		"",
		"#ops@example.com|s3cret",
		"no-separator-here",
		"  bob@example.com | pa|ss  ",
		"|missing-identifier",
	}, "\n")

	accounts, err := domain.ParseAccounts(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []domain.Account{
		{Identifier: "alice@example.com", Secret: "hunter2"},
		{Identifier: "#ops@example.com", Secret: "s3cret"},
		{Identifier: "bob@example.com", Secret: "pa|ss"},
	}, accounts)

	// Write them back out and make sure we read the same thing
	var buf bytes.Buffer
	require.NoError(t, domain.WriteAccounts(&buf, accounts))

	again, err := domain.ParseAccounts(&buf)
	require.NoError(t, err)
	require.Equal(t, accounts, again)
}

func TestAccountStringHidesSecret(t *testing.T) {
	t.Parallel()

	a := domain.Account{Identifier: "alice@example.com", Secret: "hunter2"}
	require.NotContains(t, a.String(), "hunter2")
}

func TestRecordStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		rec  domain.SecurityRecord
		ok   bool
		want domain.Status
	}{
		{name: "absent", ok: false, want: domain.StatusNotStarted},
		{name: "blank record", ok: true, want: domain.StatusNotStarted},
		{name: "secret only", rec: domain.SecurityRecord{TOTPSecret: "ABC"}, ok: true, want: domain.StatusPartial},
		{
			name: "app password without secret",
			rec: domain.SecurityRecord{AppPasswords: map[string]domain.AppPassword{
				"Mail": {Password: "x", CreatedAt: domain.FormatTimestamp(now)},
			}},
			ok:   true,
			want: domain.StatusNotStarted,
		},
		{
			name: "empty app password map",
			rec:  domain.SecurityRecord{TOTPSecret: "ABC", AppPasswords: map[string]domain.AppPassword{}},
			ok:   true,
			want: domain.StatusPartial,
		},
		{
			name: "complete",
			rec: domain.SecurityRecord{TOTPSecret: "ABC", AppPasswords: map[string]domain.AppPassword{
				"Mail": {Password: "x"},
			}},
			ok:   true,
			want: domain.StatusComplete,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, domain.StatusOf(tc.rec, tc.ok))
			require.NotEmpty(t, tc.want.Label())
		})
	}
}

func TestSetTOTPSecretNeverOverwrites(t *testing.T) {
	t.Parallel()

	var rec domain.SecurityRecord
	require.NoError(t, rec.SetTOTPSecret("FIRST"))
	require.NoError(t, rec.SetTOTPSecret("FIRST"))
	require.ErrorIs(t, rec.SetTOTPSecret("SECOND"), domain.ErrSecretConflict)
	require.Equal(t, "FIRST", rec.TOTPSecret)

	prev := rec.ReplaceTOTPSecret("SECOND")
	require.Equal(t, "FIRST", prev)
	require.Equal(t, "SECOND", rec.TOTPSecret)
}

func TestRecordTouchAndClone(t *testing.T) {
	t.Parallel()

	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	var rec domain.SecurityRecord
	rec.Touch(first)
	rec.PutAppPassword("Mail", "abcdabcdabcdabcd", first)
	rec.Touch(second)

	require.Equal(t, "2024-05-01 10:00:00", rec.CreatedAt)
	require.Equal(t, "2024-05-01 11:00:00", rec.UpdatedAt)

	clone := rec.Clone()
	clone.PutAppPassword("Other", "x", second)
	require.Len(t, rec.AppPasswords, 1)
	require.Len(t, clone.AppPasswords, 2)
}

func TestNewReportCounts(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	results := []domain.JobResult{
		{Identifier: "c", Outcome: domain.OutcomeError, Message: "login failed"},
		{Identifier: "a", Outcome: domain.OutcomeSuccess},
		{Identifier: "b", Outcome: domain.OutcomeSkipped},
		{Identifier: "d", Outcome: domain.OutcomeSuccess},
	}

	r := domain.NewReport(results, start, start.Add(90*time.Second))
	require.Equal(t, 4, r.Total)
	require.Equal(t, 2, r.Success)
	require.Equal(t, 1, r.Error)
	require.Equal(t, 1, r.Skipped)
	require.Equal(t, r.Total, r.Success+r.Error+r.Skipped)
	require.Equal(t, 90*time.Second, r.Elapsed)

	// Sorted by identifier regardless of input order
	require.Equal(t, "a", r.Results[0].Identifier)
	require.Equal(t, "d", r.Results[3].Identifier)
	require.Len(t, r.Lines(), 4)
	require.Contains(t, r.Summary(), "2 success")
}

func TestFailAndReason(t *testing.T) {
	t.Parallel()

	cause := errors.New("element not found")
	err := domain.Fail(domain.ErrAppPasswordIssueFailed, domain.Fail(domain.ErrAppPasswordUI, cause))

	require.ErrorIs(t, err, domain.ErrAppPasswordIssueFailed)
	require.ErrorIs(t, err, domain.ErrAppPasswordUI)
	require.ErrorIs(t, err, cause)
	require.Equal(t, domain.ErrAppPasswordIssueFailed, domain.Reason(err))

	require.Equal(t, domain.ErrLoginFailure, domain.Fail(domain.ErrLoginFailure, nil))

	// Wrapping a reason with itself doesn't double up the message
	wrapped := domain.Fail(domain.ErrStoreIO, cause)
	require.Equal(t, wrapped, domain.Fail(domain.ErrStoreIO, wrapped))

	require.Nil(t, domain.Reason(cause))
}
