// Package codescan pulls a numeric verification code out of free-form text,
// such as the body of an inbound message.
//
// Extraction is a heuristic and is best-effort only. Known non-code patterns
// (dates, times, years) are blanked out first, then an ordered list of rules is
// tried from most to least specific. The first candidate that isn't a trivial
// placeholder sequence wins. Rule order and exclusions are plain configuration
// so they can be tested and tuned without touching the scanner.
package codescan

import (
	"regexp"
)

// Rule is a named candidate pattern. The first capture group must hold the
// digit run.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// TrivialFunc reports whether a digit run is a placeholder that should never
// be returned as a code.
type TrivialFunc func(digits string) bool

// Config controls extraction.
type Config struct {
	// Exclusions are blanked out of the text before any rule runs.
	Exclusions []*regexp.Regexp
	// Rules are tried in order.
	Rules []Rule
	// Trivial rejects placeholder runs.
	Trivial []TrivialFunc
}

// Candidate is a digit run found by a rule.
type Candidate struct {
	Rule    string `json:"rule"`
	Digits  string `json:"digits"`
	Trivial bool   `json:"trivial"`
}

// DefaultExclusions strips dates, clock times and four digit years.
// Dates go first so a year inside a date doesn't leave the day and month behind.
func DefaultExclusions() []*regexp.Regexp {
	return []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
		regexp.MustCompile(`\b\d{1,2}:\d{2}\b`),
		regexp.MustCompile(`\b(?:19|20)\d{2}\b`),
	}
}

// DefaultRules are ordered most specific first.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "verification-code-label", Pattern: regexp.MustCompile(`(?i)verification\s+code\s*(?:is)?[:\s]*(\d{4,8})\b`)},
		{Name: "otp-label", Pattern: regexp.MustCompile(`(?i)\bOTP\s*(?:is)?[:\s]*(\d{4,8})\b`)},
		{Name: "code-label", Pattern: regexp.MustCompile(`(?i)\bcode\s*(?:is)?[:\s]*(\d{4,8})\b`)},
		{Name: "six-digits", Pattern: regexp.MustCompile(`\b(\d{6})\b`)},
		{Name: "four-digits", Pattern: regexp.MustCompile(`\b(\d{4})\b`)},
		{Name: "eight-digits", Pattern: regexp.MustCompile(`\b(\d{8})\b`)},
		{Name: "any-run", Pattern: regexp.MustCompile(`(\d{4,8})`)},
	}
}

// DefaultTrivial rejects all-zero, strictly ascending and all-nine runs.
func DefaultTrivial() []TrivialFunc {
	return []TrivialFunc{
		Repeated('0'),
		Ascending,
		Repeated('9'),
	}
}

// DefaultConfig bundles the default exclusions, rules and trivial checks.
func DefaultConfig() Config {
	return Config{
		Exclusions: DefaultExclusions(),
		Rules:      DefaultRules(),
		Trivial:    DefaultTrivial(),
	}
}

// Repeated matches runs made entirely of d.
func Repeated(d byte) TrivialFunc {
	return func(digits string) bool {
		if digits == "" {
			return false
		}
		for i := 0; i < len(digits); i++ {
			if digits[i] != d {
				return false
			}
		}
		return true
	}
}

// Ascending matches runs where every digit is one more than the previous,
// e.g. 1234 or 345678.
func Ascending(digits string) bool {
	if len(digits) < 2 {
		return false
	}
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[i-1]+1 {
			return false
		}
	}
	return true
}

// Extractor applies a Config.
type Extractor struct {
	cfg Config
}

// New returns an extractor for cfg.
func New(cfg Config) *Extractor {
	return &Extractor{cfg: cfg}
}

var defaultExtractor = New(DefaultConfig())

// Extract runs the default configuration over text.
func Extract(text string) (string, bool) {
	return defaultExtractor.Extract(text)
}

// Extract returns the first non-trivial candidate in rule order.
func (e *Extractor) Extract(text string) (string, bool) {
	for _, c := range e.Candidates(text) {
		if !c.Trivial {
			return c.Digits, true
		}
	}
	return "", false
}

// Candidates lists every digit run each rule finds, in rule order, marking the
// ones rejected as trivial.
func (e *Extractor) Candidates(text string) []Candidate {
	cleaned := e.strip(text)

	var out []Candidate
	for _, rule := range e.cfg.Rules {
		for _, m := range rule.Pattern.FindAllStringSubmatch(cleaned, -1) {
			if len(m) < 2 || m[1] == "" {
				continue
			}
			out = append(out, Candidate{
				Rule:    rule.Name,
				Digits:  m[1],
				Trivial: e.trivial(m[1]),
			})
		}
	}
	return out
}

// strip blanks exclusions with a space so neighbouring digits never merge.
func (e *Extractor) strip(text string) string {
	for _, re := range e.cfg.Exclusions {
		text = re.ReplaceAllString(text, " ")
	}
	return text
}

func (e *Extractor) trivial(digits string) bool {
	for _, f := range e.cfg.Trivial {
		if f(digits) {
			return true
		}
	}
	return false
}
