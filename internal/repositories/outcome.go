package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/duskmoor/spotsweep/internal/models"
	"github.com/duskmoor/spotsweep/internal/shared"
)

// OutcomeRepository persists per-run transfer outcomes.
type OutcomeRepository struct {
	db *sql.DB
}

// NewOutcomeRepository creates a new [OutcomeRepository] with the given database connection
func NewOutcomeRepository(db *sql.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// Record writes one outcome row. errText is empty for successful runs.
func (r *OutcomeRepository) Record(watcherID string, inserted int, errText string, at time.Time) error {
	query := `
		INSERT INTO outcomes (id, watcher_id, inserted, error, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	var errValue any
	if errText != "" {
		errValue = errText
	}

	if _, err := r.db.Exec(query, shared.GenerateID(), watcherID, inserted, errValue, at); err != nil {
		return fmt.Errorf("%w: failed to insert outcome: %v", shared.ErrStorage, err)
	}

	return nil
}

// ListByWatcher retrieves outcomes for a watcher, newest first, up to limit.
func (r *OutcomeRepository) ListByWatcher(watcherID string, limit int) ([]*models.Outcome, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, watcher_id, inserted, error, created_at
		FROM outcomes
		WHERE watcher_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, watcherID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query outcomes: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	var outcomes []*models.Outcome
	for rows.Next() {
		var (
			id        string
			wid       string
			inserted  int
			errText   sql.NullString
			createdAt time.Time
		)

		if err := rows.Scan(&id, &wid, &inserted, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan outcome: %v", shared.ErrStorage, err)
		}

		outcome := &models.Outcome{
			ID:        id,
			WatcherID: wid,
			Inserted:  inserted,
			CreatedAt: createdAt,
		}
		if errText.Valid {
			outcome.Error = errText.String
		}

		outcomes = append(outcomes, outcome)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrStorage, err)
	}

	return outcomes, nil
}
