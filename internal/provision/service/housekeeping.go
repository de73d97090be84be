package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/store"
)

// HousekeepingService periodically prunes run history older than Retention
// so the ledger does not grow without bound.
type HousekeepingService struct {
	Ledger    store.Ledger
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration
	Now       func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to one hour and a non-positive retention to 30 days.
func NewHousekeepingService(ledger store.Ledger, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	return &HousekeepingService{
		Ledger:    ledger,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "retention", s.Retention)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup deletes runs that started before the retention window.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	cutoff := now.Add(-s.Retention)

	deleted, err := s.Ledger.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to delete old runs", "error", err)
		return
	}
	s.Logger.Info("housekeeping cleanup completed", "deleted_runs", deleted, "cutoff", cutoff)
}
