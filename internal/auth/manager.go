// Package auth implements the token lifecycle manager: it keeps each
// user's delegated-access credential valid across long-running background
// work, refreshing and persisting it as needed.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/duskmoor/spotsweep/internal/models"
	"github.com/duskmoor/spotsweep/internal/shared"
	"github.com/duskmoor/spotsweep/internal/spotify"
)

// CredentialStore is the narrow persistence contract the manager needs.
// The repositories package provides the real implementation.
type CredentialStore interface {
	GetCredential(userURI string) (models.Credential, error)
	PutCredential(userURI string, cred models.Credential) error
}

// Manager resolves a valid credential for a user, performing the refresh
// exchange when the stored one is expired or about to expire.
//
// Refreshes are serialized per user: the provider may invalidate a refresh
// token after first use, so two concurrent resolutions for the same user
// must never both reach the token endpoint. Different users never block
// each other.
type Manager struct {
	store     CredentialStore
	exchanger spotify.Exchanger
	margin    time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	cache map[string]models.Credential
}

// NewManager creates a Manager. margin is the expiry safety margin; zero
// or negative falls back to 60 seconds.
func NewManager(store CredentialStore, exchanger spotify.Exchanger, margin time.Duration) *Manager {
	if margin <= 0 {
		margin = 60 * time.Second
	}

	return &Manager{
		store:     store,
		exchanger: exchanger,
		margin:    margin,
		locks:     make(map[string]*sync.Mutex),
		cache:     make(map[string]models.Credential),
	}
}

// Resolve returns a credential valid for at least the safety margin,
// refreshing and persisting first when necessary.
//
// The refreshed credential is written to the store before it is returned,
// so a crash between refresh and persist only loses work that the next
// tick retries.
func (m *Manager) Resolve(ctx context.Context, userURI string) (models.Credential, error) {
	lock := m.userLock(userURI)
	lock.Lock()
	defer lock.Unlock()

	cred, err := m.store.GetCredential(userURI)
	if err != nil {
		return models.Credential{}, fmt.Errorf("failed to load credential for %s: %w", userURI, err)
	}

	if !cred.ExpiredWithin(m.margin) {
		m.setCached(userURI, cred)
		return cred, nil
	}

	if !cred.CanRefresh() {
		return models.Credential{}, fmt.Errorf("%w for %s", shared.ErrNoRefreshToken, userURI)
	}

	refreshed, err := m.exchanger.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		return models.Credential{}, err
	}

	// The refresh response is not guaranteed to include a new refresh
	// token or the granted scopes; carry the old ones forward.
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = cred.RefreshToken
	}
	if len(refreshed.Scopes) == 0 {
		refreshed.Scopes = cred.Scopes
	}

	if err := m.store.PutCredential(userURI, refreshed); err != nil {
		return models.Credential{}, fmt.Errorf("failed to persist refreshed credential for %s: %w", userURI, err)
	}

	m.setCached(userURI, refreshed)
	return refreshed, nil
}

// Source returns a [spotify.CredentialSource] that always yields the most
// recently resolved credential for the user, so a refresh mid-batch is
// visible to the client's next request.
func (m *Manager) Source(userURI string) spotify.CredentialSource {
	return func() models.Credential {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.cache[userURI]
	}
}

// Forget drops the cached credential for a user, e.g. after their account
// is deleted.
func (m *Manager) Forget(userURI string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, userURI)
}

func (m *Manager) setCached(userURI string, cred models.Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[userURI] = cred
}

// userLock returns the per-user refresh mutex, creating it on first use.
func (m *Manager) userLock(userURI string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[userURI]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[userURI] = lock
	}

	return lock
}
