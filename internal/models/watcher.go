package models

import (
	"fmt"
	"time"
)

// SyncInterval is how often a watcher becomes due. It determines
// eligibility only; the scheduler's own tick controls check granularity.
type SyncInterval string

const (
	IntervalHour SyncInterval = "hour"
	IntervalDay  SyncInterval = "day"
	IntervalWeek SyncInterval = "week"
)

// ParseSyncInterval parses the storage/user representation of an interval.
func ParseSyncInterval(s string) (SyncInterval, error) {
	switch SyncInterval(s) {
	case IntervalHour, IntervalDay, IntervalWeek:
		return SyncInterval(s), nil
	default:
		return "", fmt.Errorf("invalid sync interval: %q", s)
	}
}

// Duration converts the interval to a concrete duration.
func (s SyncInterval) Duration() time.Duration {
	switch s {
	case IntervalDay:
		return 24 * time.Hour
	case IntervalWeek:
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}

func (s SyncInterval) String() string {
	return string(s)
}

// Watcher is a persisted rule describing one directed sync relationship
// between a source and target endpoint for one user.
type Watcher struct {
	ID           string
	UserURI      string
	Source       Endpoint
	Target       Endpoint
	ShouldRemove bool
	Interval     SyncInterval
	LastSyncAt   *time.Time
	NextSyncAt   *time.Time
	CreatedAt    time.Time
}

// Due reports whether the watcher should run now. A watcher with no
// scheduled time has never run and is due immediately.
func (w *Watcher) Due(now time.Time) bool {
	return w.NextSyncAt == nil || !w.NextSyncAt.After(now)
}

// Validate checks the creation invariants: no self-transfer and the saved
// collection is never a valid target.
func (w *Watcher) Validate() error {
	if w.UserURI == "" {
		return fmt.Errorf("watcher requires a user")
	}
	if w.Source.Equal(w.Target) {
		return fmt.Errorf("source and target endpoints are the same")
	}
	if w.Target.IsSaved() {
		return fmt.Errorf("saved tracks cannot be a transfer target")
	}
	return nil
}

// Outcome is the per-run record of a transfer attempt.
type Outcome struct {
	ID        string
	WatcherID string
	Inserted  int
	Error     string
	CreatedAt time.Time
}
