package codescan_test

import (
	"regexp"
	"testing"

	"github.com/aussiebroadwan/provision/pkg/codescan"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{name: "code is label", text: "Your code is 482913", want: "482913", ok: true},
		{name: "date and time only", text: "Meeting on 12/05/2024 at 14:30", ok: false},
		{name: "verification code label", text: "verification code: 7421", want: "7421", ok: true},
		{name: "all zeros", text: "order 0000", ok: false},
		{name: "otp label", text: "Your OTP: 55183", want: "55183", ok: true},
		{name: "year only", text: "Copyright 2024", ok: false},
		{name: "ascending placeholder", text: "use 123456 as an example", ok: false},
		{name: "all nines", text: "ref 9999", ok: false},
		{name: "six digits beat four", text: "ticket 5521 or 604183", want: "604183", ok: true},
		{name: "four digits beat eight", text: "ids 48213390 and 7742", want: "7742", ok: true},
		{name: "label beats bare run", text: "604183 was old, new code: 913372", want: "913372", ok: true},
		{name: "dashed date", text: "sent 1-2-24, code 8841", want: "8841", ok: true},
		{name: "falls back to any run", text: "pin 55183", want: "55183", ok: true},
		{name: "no digits", text: "hello there", ok: false},
		{name: "too short", text: "call 911", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := codescan.Extract(tc.text)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestTrivial(t *testing.T) {
	t.Parallel()

	require.True(t, codescan.Ascending("1234"))
	require.True(t, codescan.Ascending("345678"))
	require.False(t, codescan.Ascending("1243"))
	require.False(t, codescan.Ascending("7"))

	zeros := codescan.Repeated('0')
	require.True(t, zeros("000000"))
	require.False(t, zeros("000100"))
	require.False(t, zeros(""))
}

func TestCandidatesListsRulesInOrder(t *testing.T) {
	t.Parallel()

	cands := codescan.New(codescan.DefaultConfig()).Candidates("code: 0000 then 482913")
	require.NotEmpty(t, cands)

	// The label rule finds the placeholder first but it's marked trivial
	require.Equal(t, "code-label", cands[0].Rule)
	require.Equal(t, "0000", cands[0].Digits)
	require.True(t, cands[0].Trivial)

	got, ok := codescan.New(codescan.DefaultConfig()).Extract("code: 0000 then 482913")
	require.True(t, ok)
	require.Equal(t, "482913", got)
}

func TestCustomConfig(t *testing.T) {
	t.Parallel()

	// Only accept codes after "PIN", nothing else
	e := codescan.New(codescan.Config{
		Rules: []codescan.Rule{
			{Name: "pin", Pattern: regexp.MustCompile(`PIN (\d{4})`)},
		},
		Trivial: []codescan.TrivialFunc{codescan.Repeated('1')},
	})

	got, ok := e.Extract("PIN 4821, code 777777")
	require.True(t, ok)
	require.Equal(t, "4821", got)

	_, ok = e.Extract("PIN 1111")
	require.False(t, ok)

	// No exclusions configured so dates are fair game
	got, ok = e.Extract("PIN 2024")
	require.True(t, ok)
	require.Equal(t, "2024", got)
}
