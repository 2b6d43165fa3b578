package engine

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/duskmoor/spotsweep/internal/models"
	"github.com/duskmoor/spotsweep/internal/shared"
)

// WatcherStore is the watcher persistence contract the scheduler consumes.
type WatcherStore interface {
	ListAll() ([]*models.Watcher, error)
	UpdateSchedule(id string, lastSyncAt, nextSyncAt time.Time) error
}

// OutcomeLog records per-run transfer outcomes.
type OutcomeLog interface {
	Record(watcherID string, inserted int, errText string, at time.Time) error
}

// CredentialResolver resolves a valid credential for a user, refreshing if
// needed. The auth package provides the real implementation.
type CredentialResolver interface {
	Resolve(ctx context.Context, userURI string) (models.Credential, error)
}

// LibraryFactory returns the library client for a user. The returned
// client must pick up credential refreshes performed by the resolver.
type LibraryFactory func(userURI string) Library

// Scheduler is the long-lived sync loop. On each tick it selects due
// watchers and runs them sequentially, isolating per-watcher failures.
type Scheduler struct {
	watchers  WatcherStore
	outcomes  OutcomeLog
	creds     CredentialResolver
	libraries LibraryFactory
	tick      time.Duration
	logger    *log.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewScheduler creates a Scheduler. tick is the wake interval; zero or
// negative falls back to one minute.
func NewScheduler(watchers WatcherStore, outcomes OutcomeLog, creds CredentialResolver, libraries LibraryFactory, tick time.Duration, logger *log.Logger) *Scheduler {
	if tick <= 0 {
		tick = time.Minute
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Scheduler{
		watchers:  watchers,
		outcomes:  outcomes,
		creds:     creds,
		libraries: libraries,
		tick:      tick,
		logger:    logger,
		now:       time.Now,
	}
}

// Run loops until the context is canceled, checking for due watchers on
// every tick. The in-flight watcher finishes before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "tick", s.tick)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs every due watcher once. A single watcher's failure never
// aborts the batch.
func (s *Scheduler) Tick(ctx context.Context) {
	all, err := s.watchers.ListAll()
	if err != nil {
		s.logger.Error("failed to list watchers", "err", err)
		return
	}

	now := s.now()

	var due []*models.Watcher
	for _, watcher := range all {
		if watcher.Due(now) {
			due = append(due, watcher)
		}
	}

	if len(due) == 0 {
		return
	}

	s.logger.Info("syncing due watchers", "due", len(due), "total", len(all))

	for _, watcher := range due {
		if ctx.Err() != nil {
			return
		}

		inserted, err := s.RunWatcher(ctx, watcher)
		if err != nil {
			s.logWatcherError(watcher, err)
			continue
		}

		if inserted > 0 {
			s.logger.Info("watcher synced", "watcher", watcher.ID, "inserted", inserted)
		}
	}
}

// RunWatcher executes one watcher's transfer and updates its bookkeeping.
// This is the same primitive the web layer calls for a user-triggered
// "sync now"; the schedule advances whether the run succeeds or fails, so
// a persistently failing watcher waits for its next slot instead of
// retrying in a tight loop.
func (s *Scheduler) RunWatcher(ctx context.Context, watcher *models.Watcher) (int, error) {
	now := s.now()
	defer s.reschedule(watcher, now)

	if _, err := s.creds.Resolve(ctx, watcher.UserURI); err != nil {
		s.recordFailure(watcher, err, now)
		return 0, err
	}

	lib := s.libraries(watcher.UserURI)

	inserted, err := Transfer(ctx, lib, watcher.Source, watcher.Target, watcher.ShouldRemove)
	if err != nil {
		s.recordFailure(watcher, err, now)
		return inserted, err
	}

	// A run that found no work is a no-op, not an outcome.
	if inserted > 0 {
		if err := s.outcomes.Record(watcher.ID, inserted, "", now); err != nil {
			s.logger.Error("failed to record outcome", "watcher", watcher.ID, "err", err)
		}
	}

	return inserted, nil
}

func (s *Scheduler) recordFailure(watcher *models.Watcher, runErr error, at time.Time) {
	if err := s.outcomes.Record(watcher.ID, 0, runErr.Error(), at); err != nil {
		s.logger.Error("failed to record outcome", "watcher", watcher.ID, "err", err)
	}
}

func (s *Scheduler) reschedule(watcher *models.Watcher, now time.Time) {
	next := now.Add(watcher.Interval.Duration())

	if err := s.watchers.UpdateSchedule(watcher.ID, now, next); err != nil {
		s.logger.Error("failed to update schedule", "watcher", watcher.ID, "err", err)
		return
	}

	watcher.LastSyncAt = &now
	watcher.NextSyncAt = &next
}

// logWatcherError maps failure classes to severities: storage failures
// after a refresh leave memory and disk inconsistent and log at error;
// rate limiting is transient and logs at warn.
func (s *Scheduler) logWatcherError(watcher *models.Watcher, err error) {
	switch {
	case errors.Is(err, shared.ErrStorage):
		s.logger.Error("watcher sync failed with storage error", "watcher", watcher.ID, "user", watcher.UserURI, "err", err)
	case errors.Is(err, shared.ErrRateLimited):
		s.logger.Warn("watcher sync rate limited", "watcher", watcher.ID, "err", err)
	default:
		s.logger.Warn("watcher sync failed", "watcher", watcher.ID, "user", watcher.UserURI, "err", err)
	}
}
