package service

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/provision/internal/provision/domain"
)

// Export file names, one per status.
const (
	NotSetUpFile        = "accounts_not_setup.txt"
	NeedAppPasswordFile = "accounts_need_app_password.txt"
	CompleteFile        = "accounts_complete.txt"
)

// Partition groups accounts by their stored status, keeping input order.
type Partition struct {
	NotSetUp        []domain.Account
	NeedAppPassword []domain.Account
	Complete        []domain.Account
}

// PartitionAccounts classifies accounts against a loaded store.
func PartitionAccounts(accounts []domain.Account, records map[string]domain.SecurityRecord) Partition {
	var p Partition
	for _, acct := range accounts {
		rec, ok := records[acct.Identifier]
		switch domain.StatusOf(rec, ok) {
		case domain.StatusComplete:
			p.Complete = append(p.Complete, acct)
		case domain.StatusPartial:
			p.NeedAppPassword = append(p.NeedAppPassword, acct)
		default:
			p.NotSetUp = append(p.NotSetUp, acct)
		}
	}
	return p
}

// Export writes the three account lists into dir in the accounts-file format
// and returns the written paths. The files carry primary secrets and are
// written owner-only.
func (p Partition) Export(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create export dir: %w", err)
	}

	files := []struct {
		name     string
		accounts []domain.Account
	}{
		{NotSetUpFile, p.NotSetUp},
		{NeedAppPasswordFile, p.NeedAppPassword},
		{CompleteFile, p.Complete},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		var buf bytes.Buffer
		if err := domain.WriteAccounts(&buf, f.accounts); err != nil {
			return paths, fmt.Errorf("failed to encode %s: %w", f.name, err)
		}

		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
