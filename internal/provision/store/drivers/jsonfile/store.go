// Package jsonfile implements the credential store as a single JSON document
// on disk. Every update rewrites the whole document through a temp file and a
// rename, so readers only ever see a complete file.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/domain"
	"github.com/aussiebroadwan/provision/internal/provision/store"
	"github.com/aussiebroadwan/provision/pkg/cryptox"
)

// FileMode is applied to the store file; it holds secrets.
const FileMode fs.FileMode = 0o600

var errEmptyIdentifier = errors.New("empty identifier")

// Store is a mutex-guarded JSON document of identifier -> SecurityRecord.
type Store struct {
	path   string
	logger *slog.Logger
	sealer *cryptox.Sealer
	now    func() time.Time

	// mu serializes the whole load-mutate-save sequence. The document is a
	// single file, not per-key rows, so even different identifiers contend.
	mu sync.Mutex
}

var _ store.CredentialStore = (*Store)(nil)

type Option func(*Store)

// WithLogger sets the logger used for degraded-read warnings.
func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.logger = l } }

// WithSealer encrypts secret values at rest. Field names are unchanged.
func WithSealer(sealer *cryptox.Sealer) Option { return func(s *Store) { s.sealer = sealer } }

// WithClock overrides the clock used for record timestamps.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func New(path string, opts ...Option) *Store {
	s := &Store{
		path:   path,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path is the backing file.
func (s *Store) Path() string { return s.path }

// Load returns every record. A missing file is an empty store; an unreadable
// or corrupt file is logged and also treated as empty so a batch can carry on.
func (s *Store) Load(ctx context.Context) (map[string]domain.SecurityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		s.logger.WarnContext(ctx, "credential store unreadable, treating as empty",
			"path", s.path,
			"error", err,
		)
		return map[string]domain.SecurityRecord{}, nil
	}
	return records, nil
}

func (s *Store) Get(ctx context.Context, identifier string) (domain.SecurityRecord, bool, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return domain.SecurityRecord{}, false, err
	}
	rec, ok := records[identifier]
	return rec, ok, nil
}

// ApplyUpdate loads the document, applies fn to the record for identifier and
// writes the document back atomically. Unlike Load, a corrupt file is an error
// here: overwriting it would silently drop every other account's secrets.
func (s *Store) ApplyUpdate(ctx context.Context, identifier string, fn store.Mutator) error {
	if identifier == "" {
		return domain.Fail(domain.ErrStoreIO, errEmptyIdentifier)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}

	rec := records[identifier].Clone()
	if err := fn(&rec); err != nil {
		return err
	}
	rec.Touch(s.now())
	records[identifier] = rec

	return s.write(records)
}

// read must be called with mu held.
func (s *Store) read() (map[string]domain.SecurityRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]domain.SecurityRecord{}, nil
	}
	if err != nil {
		return nil, domain.Fail(domain.ErrStoreIO, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]domain.SecurityRecord{}, nil
	}

	var records map[string]domain.SecurityRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, domain.Fail(domain.ErrStoreIO, fmt.Errorf("corrupt store file: %w", err))
	}
	if records == nil {
		records = map[string]domain.SecurityRecord{}
	}

	if s.sealer != nil {
		for id, rec := range records {
			opened, err := s.openRecord(rec)
			if err != nil {
				return nil, domain.Fail(domain.ErrStoreIO, fmt.Errorf("record %q: %w", id, err))
			}
			records[id] = opened
		}
	}

	return records, nil
}

// write must be called with mu held.
func (s *Store) write(records map[string]domain.SecurityRecord) error {
	out := records
	if s.sealer != nil {
		out = make(map[string]domain.SecurityRecord, len(records))
		for id, rec := range records {
			sealed, err := s.sealRecord(rec)
			if err != nil {
				return domain.Fail(domain.ErrStoreIO, err)
			}
			out[id] = sealed
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return domain.Fail(domain.ErrStoreIO, err)
	}
	data = append(data, '\n')

	if err := writeFileAtomic(s.path, data); err != nil {
		return domain.Fail(domain.ErrStoreIO, err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Chmod(FileMode); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func (s *Store) sealRecord(rec domain.SecurityRecord) (domain.SecurityRecord, error) {
	return mapSecrets(rec, s.sealer.Seal)
}

func (s *Store) openRecord(rec domain.SecurityRecord) (domain.SecurityRecord, error) {
	return mapSecrets(rec, s.sealer.Open)
}

// mapSecrets applies fn to every secret value of a copy of rec.
func mapSecrets(rec domain.SecurityRecord, fn func(string) (string, error)) (domain.SecurityRecord, error) {
	out := rec.Clone()

	var err error
	if out.TOTPSecret, err = fn(out.TOTPSecret); err != nil {
		return domain.SecurityRecord{}, err
	}
	for label, ap := range out.AppPasswords {
		if ap.Password, err = fn(ap.Password); err != nil {
			return domain.SecurityRecord{}, err
		}
		out.AppPasswords[label] = ap
	}
	for i, code := range out.BackupCodes {
		if out.BackupCodes[i], err = fn(code); err != nil {
			return domain.SecurityRecord{}, err
		}
	}
	return out, nil
}
