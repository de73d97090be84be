package domain

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// AccountSeparator splits an identifier from its secret in an accounts file.
const AccountSeparator = "|"

// DefaultAppPasswordLabel is the label used when a job does not request one.
const DefaultAppPasswordLabel = "Mail"

// Account is an identifier and the primary secret supplied by the caller.
// The secret is only held for the duration of a job.
type Account struct {
	Identifier string
	Secret     string
}

// String never includes the secret.
func (a Account) String() string { return a.Identifier }

// ParseAccounts reads `identifier|secret` lines. Blank lines and lines without
// a separator are ignored. Lines are split on the first separator so secrets
// may contain '|'.
func ParseAccounts(r io.Reader) ([]Account, error) {
	var accounts []Account

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		id, secret, ok := strings.Cut(line, AccountSeparator)
		if !ok {
			continue
		}

		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}

		accounts = append(accounts, Account{
			Identifier: id,
			Secret:     strings.TrimSpace(secret),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}

	return accounts, nil
}

// LoadAccountsFile parses the accounts file at path.
func LoadAccountsFile(path string) ([]Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts file: %w", err)
	}
	defer f.Close()

	return ParseAccounts(f)
}

// WriteAccounts writes accounts back out in the same format ParseAccounts reads.
func WriteAccounts(w io.Writer, accounts []Account) error {
	bw := bufio.NewWriter(w)
	for _, a := range accounts {
		if _, err := fmt.Fprintf(bw, "%s%s%s\n", a.Identifier, AccountSeparator, a.Secret); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// FindAccount returns the first account with the given identifier.
func FindAccount(accounts []Account, identifier string) (Account, bool) {
	for _, a := range accounts {
		if a.Identifier == identifier {
			return a, true
		}
	}
	return Account{}, false
}
