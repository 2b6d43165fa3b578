package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/duskmoor/spotsweep/internal/models"
	"github.com/duskmoor/spotsweep/internal/shared"
)

const watcherColumns = "id, user_uri, playlist_from, playlist_to, should_remove, sync_interval, last_sync_at, next_sync_at, created_at"

// WatcherRepository persists watcher definitions and their schedule
// bookkeeping.
type WatcherRepository struct {
	db *sql.DB
}

// NewWatcherRepository creates a new [WatcherRepository] with the given database connection
func NewWatcherRepository(db *sql.DB) *WatcherRepository {
	return &WatcherRepository{db: db}
}

// Create inserts a new watcher with a generated ID. The (user, source,
// target) triple is unique; duplicates are rejected.
func (r *WatcherRepository) Create(watcher *models.Watcher) error {
	if err := watcher.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	watcher.ID = shared.GenerateID()
	watcher.CreatedAt = time.Now()

	query := `
		INSERT INTO watchers (id, user_uri, playlist_from, playlist_to, should_remove, sync_interval, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		watcher.ID,
		watcher.UserURI,
		EndpointValue(watcher.Source),
		EndpointValue(watcher.Target),
		watcher.ShouldRemove,
		watcher.Interval.String(),
		watcher.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w for %s", shared.ErrDuplicateWatcher, watcher.UserURI)
		}
		return fmt.Errorf("%w: failed to insert watcher: %v", shared.ErrStorage, err)
	}

	return nil
}

// Get retrieves a watcher by ID.
func (r *WatcherRepository) Get(id string) (*models.Watcher, error) {
	query := fmt.Sprintf("SELECT %s FROM watchers WHERE id = ?", watcherColumns)

	watcher, err := scanWatcher(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrWatcherNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return watcher, nil
}

// ListAll retrieves every configured watcher.
func (r *WatcherRepository) ListAll() ([]*models.Watcher, error) {
	query := fmt.Sprintf("SELECT %s FROM watchers ORDER BY created_at ASC", watcherColumns)
	return r.list(query)
}

// ListByUser retrieves all watchers owned by the given user.
func (r *WatcherRepository) ListByUser(userURI string) ([]*models.Watcher, error) {
	query := fmt.Sprintf("SELECT %s FROM watchers WHERE user_uri = ? ORDER BY created_at ASC", watcherColumns)
	return r.list(query, userURI)
}

// ListBySource retrieves all watchers reading from the given endpoint,
// regardless of owner. The web layer uses this to reject a new watcher
// whose target is already being swept by another watcher.
func (r *WatcherRepository) ListBySource(source models.Endpoint) ([]*models.Watcher, error) {
	query := fmt.Sprintf("SELECT %s FROM watchers WHERE playlist_from = ?", watcherColumns)
	return r.list(query, EndpointValue(source))
}

// UpdateSchedule records an attempted run: both timestamps advance whether
// the run succeeded or failed.
func (r *WatcherRepository) UpdateSchedule(id string, lastSyncAt, nextSyncAt time.Time) error {
	result, err := r.db.Exec("UPDATE watchers SET last_sync_at = ?, next_sync_at = ? WHERE id = ?",
		lastSyncAt, nextSyncAt, id)
	if err != nil {
		return fmt.Errorf("%w: failed to update schedule: %v", shared.ErrStorage, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrStorage, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrWatcherNotFound, id)
	}

	return nil
}

// Delete removes a watcher by ID and owner.
func (r *WatcherRepository) Delete(id, userURI string) error {
	result, err := r.db.Exec("DELETE FROM watchers WHERE id = ? AND user_uri = ?", id, userURI)
	if err != nil {
		return fmt.Errorf("%w: failed to delete watcher: %v", shared.ErrStorage, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrStorage, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrWatcherNotFound, id)
	}

	return nil
}

func (r *WatcherRepository) list(query string, args ...any) ([]*models.Watcher, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query watchers: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	var watchers []*models.Watcher
	for rows.Next() {
		watcher, err := scanWatcher(rows)
		if err != nil {
			return nil, err
		}
		watchers = append(watchers, watcher)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrStorage, err)
	}

	return watchers, nil
}

// scanner abstracts over [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanWatcher(row scanner) (*models.Watcher, error) {
	var (
		id           string
		userURI      string
		playlistFrom string
		playlistTo   string
		shouldRemove bool
		syncInterval string
		lastSyncAt   sql.NullTime
		nextSyncAt   sql.NullTime
		createdAt    time.Time
	)

	err := row.Scan(&id, &userURI, &playlistFrom, &playlistTo, &shouldRemove, &syncInterval, &lastSyncAt, &nextSyncAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan watcher: %v", shared.ErrStorage, err)
	}

	source, err := ParseEndpoint(playlistFrom)
	if err != nil {
		return nil, fmt.Errorf("%w: bad source endpoint: %v", shared.ErrStorage, err)
	}

	target, err := ParseEndpoint(playlistTo)
	if err != nil {
		return nil, fmt.Errorf("%w: bad target endpoint: %v", shared.ErrStorage, err)
	}

	interval, err := models.ParseSyncInterval(syncInterval)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}

	watcher := &models.Watcher{
		ID:           id,
		UserURI:      userURI,
		Source:       source,
		Target:       target,
		ShouldRemove: shouldRemove,
		Interval:     interval,
		CreatedAt:    createdAt,
	}

	if lastSyncAt.Valid {
		watcher.LastSyncAt = &lastSyncAt.Time
	}
	if nextSyncAt.Valid {
		watcher.NextSyncAt = &nextSyncAt.Time
	}

	return watcher, nil
}
