package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/domain"
)

var ErrNotFound = errors.New("store: not found")

// Mutator edits a single record in place. Returning an error aborts the
// update without writing anything.
type Mutator func(rec *domain.SecurityRecord) error

// CredentialStore is the shared, persisted mapping of account identifier to
// security record. It is the only state shared between concurrent jobs.
type CredentialStore interface {
	// Load returns the full mapping. Unreadable or corrupt storage yields an
	// empty mapping and a logged warning rather than an error.
	Load(ctx context.Context) (map[string]domain.SecurityRecord, error)

	// Get returns one record and whether it exists.
	Get(ctx context.Context, identifier string) (domain.SecurityRecord, bool, error)

	// ApplyUpdate performs a serialized read-modify-write of the record for
	// identifier, creating a blank record if absent. Failures wrap
	// domain.ErrStoreIO.
	ApplyUpdate(ctx context.Context, identifier string, fn Mutator) error
}

// Ledger keeps the history of batch and single-account runs.
type Ledger interface {
	CreateRun(ctx context.Context, run domain.RunSummary) error
	RecordJob(ctx context.Context, runID string, res domain.JobResult) error
	FinishRun(ctx context.Context, runID string, report domain.Report) error
	GetRun(ctx context.Context, runID string) (domain.RunDetail, error)
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
	DeleteRunsBefore(ctx context.Context, before time.Time) (int64, error)

	ApplyMigrations() error
	Ping(ctx context.Context) error
	Close() error
}
