package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/duskmoor/spotsweep/internal/models"
	"github.com/duskmoor/spotsweep/internal/shared"
)

// UserRepository persists users and their credentials, keyed by Spotify
// user URI. It is the credential store consumed by the token lifecycle
// manager.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert inserts a user with their credential, or replaces the credential
// if the user already exists. Called at the end of the OAuth login flow.
func (r *UserRepository) Upsert(userURI string, cred models.Credential) error {
	token, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO users (id, user_uri, token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_uri) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, shared.GenerateID(), userURI, string(token), now, now); err != nil {
		return fmt.Errorf("%w: failed to upsert user: %v", shared.ErrStorage, err)
	}

	return nil
}

// GetCredential retrieves the stored credential for a user.
func (r *UserRepository) GetCredential(userURI string) (models.Credential, error) {
	var token string
	err := r.db.QueryRow("SELECT token FROM users WHERE user_uri = ?", userURI).Scan(&token)
	if err == sql.ErrNoRows {
		return models.Credential{}, fmt.Errorf("%w for %s", shared.ErrMissingCredential, userURI)
	}
	if err != nil {
		return models.Credential{}, fmt.Errorf("%w: failed to query credential: %v", shared.ErrStorage, err)
	}

	var cred models.Credential
	if err := json.Unmarshal([]byte(token), &cred); err != nil {
		return models.Credential{}, fmt.Errorf("%w: failed to decode credential: %v", shared.ErrStorage, err)
	}

	return cred, nil
}

// PutCredential replaces the stored credential for a user. The last
// written value is authoritative; refresh serialization happens upstream.
func (r *UserRepository) PutCredential(userURI string, cred models.Credential) error {
	token, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	result, err := r.db.Exec("UPDATE users SET token = ?, updated_at = ? WHERE user_uri = ?",
		string(token), time.Now(), userURI)
	if err != nil {
		return fmt.Errorf("%w: failed to update credential: %v", shared.ErrStorage, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrStorage, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w for %s", shared.ErrMissingCredential, userURI)
	}

	return nil
}

// ListUserURIs returns the URIs of all known users.
func (r *UserRepository) ListUserURIs() ([]string, error) {
	rows, err := r.db.Query("SELECT user_uri FROM users ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query users: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	var uris []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, fmt.Errorf("%w: failed to scan user: %v", shared.ErrStorage, err)
		}
		uris = append(uris, uri)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrStorage, err)
	}

	return uris, nil
}

// Delete removes a user. Their watchers and outcomes cascade.
func (r *UserRepository) Delete(userURI string) error {
	result, err := r.db.Exec("DELETE FROM users WHERE user_uri = ?", userURI)
	if err != nil {
		return fmt.Errorf("%w: failed to delete user: %v", shared.ErrStorage, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrStorage, err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %s", userURI)
	}

	return nil
}
