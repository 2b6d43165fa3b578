package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/duskmoor/spotsweep/internal/models"
	"github.com/duskmoor/spotsweep/internal/shared"
)

type memoryStore struct {
	mu    sync.Mutex
	creds map[string]models.Credential
	puts  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{creds: map[string]models.Credential{}}
}

func (s *memoryStore) GetCredential(userURI string) (models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.creds[userURI]
	if !ok {
		return models.Credential{}, shared.ErrMissingCredential
	}
	return cred, nil
}

func (s *memoryStore) PutCredential(userURI string, cred models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[userURI] = cred
	s.puts++
	return nil
}

type fakeExchanger struct {
	mu       sync.Mutex
	calls    int
	result   models.Credential
	err      error
	blockFor time.Duration
}

func (e *fakeExchanger) Refresh(ctx context.Context, refreshToken string) (models.Credential, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.blockFor > 0 {
		time.Sleep(e.blockFor)
	}
	if e.err != nil {
		return models.Credential{}, e.err
	}
	return e.result, nil
}

func (e *fakeExchanger) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func credExpiringIn(d time.Duration) models.Credential {
	return models.Credential{
		AccessToken:  "old-token",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(d),
		RefreshToken: "refresh-token",
		Scopes:       []string{"playlist-read-private"},
	}
}

func TestManagerResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid Credential Passes Through", func(t *testing.T) {
		store := newMemoryStore()
		store.creds["user:a"] = credExpiringIn(10 * time.Minute)
		exchanger := &fakeExchanger{}

		m := NewManager(store, exchanger, 60*time.Second)

		cred, err := m.Resolve(ctx, "user:a")
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if cred.AccessToken != "old-token" {
			t.Errorf("expected stored token, got %q", cred.AccessToken)
		}
		if exchanger.callCount() != 0 {
			t.Error("no refresh should happen for a valid credential")
		}
	})

	t.Run("Refreshes Inside The Safety Margin", func(t *testing.T) {
		store := newMemoryStore()
		store.creds["user:a"] = credExpiringIn(30 * time.Second)
		exchanger := &fakeExchanger{result: models.Credential{
			AccessToken: "new-token",
			ExpiresAt:   time.Now().Add(time.Hour),
		}}

		m := NewManager(store, exchanger, 60*time.Second)

		cred, err := m.Resolve(ctx, "user:a")
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if cred.AccessToken != "new-token" {
			t.Errorf("expected refreshed token, got %q", cred.AccessToken)
		}
		if exchanger.callCount() != 1 {
			t.Errorf("expected 1 refresh, got %d", exchanger.callCount())
		}
	})

	t.Run("Does Not Refresh Outside The Margin", func(t *testing.T) {
		store := newMemoryStore()
		store.creds["user:a"] = credExpiringIn(120 * time.Second)
		exchanger := &fakeExchanger{}

		m := NewManager(store, exchanger, 60*time.Second)

		if _, err := m.Resolve(ctx, "user:a"); err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if exchanger.callCount() != 0 {
			t.Errorf("expected no refresh, got %d", exchanger.callCount())
		}
	})

	t.Run("Carries Refresh Token And Scopes Forward", func(t *testing.T) {
		store := newMemoryStore()
		store.creds["user:a"] = credExpiringIn(0)
		exchanger := &fakeExchanger{result: models.Credential{
			AccessToken: "new-token",
			ExpiresAt:   time.Now().Add(time.Hour),
		}}

		m := NewManager(store, exchanger, 60*time.Second)

		cred, err := m.Resolve(ctx, "user:a")
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if cred.RefreshToken != "refresh-token" {
			t.Errorf("old refresh token should carry forward, got %q", cred.RefreshToken)
		}
		if len(cred.Scopes) != 1 || cred.Scopes[0] != "playlist-read-private" {
			t.Errorf("old scopes should carry forward, got %v", cred.Scopes)
		}
	})

	t.Run("New Refresh Token Wins When Provided", func(t *testing.T) {
		store := newMemoryStore()
		store.creds["user:a"] = credExpiringIn(0)
		exchanger := &fakeExchanger{result: models.Credential{
			AccessToken:  "new-token",
			ExpiresAt:    time.Now().Add(time.Hour),
			RefreshToken: "rotated-refresh-token",
		}}

		m := NewManager(store, exchanger, 60*time.Second)

		cred, err := m.Resolve(ctx, "user:a")
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if cred.RefreshToken != "rotated-refresh-token" {
			t.Errorf("rotated refresh token should win, got %q", cred.RefreshToken)
		}
	})

	t.Run("Persists Before Returning", func(t *testing.T) {
		store := newMemoryStore()
		store.creds["user:a"] = credExpiringIn(0)
		exchanger := &fakeExchanger{result: models.Credential{
			AccessToken: "new-token",
			ExpiresAt:   time.Now().Add(time.Hour),
		}}

		m := NewManager(store, exchanger, 60*time.Second)

		cred, err := m.Resolve(ctx, "user:a")
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}

		stored, err := store.GetCredential("user:a")
		if err != nil {
			t.Fatalf("stored credential missing: %v", err)
		}
		if stored.AccessToken != cred.AccessToken {
			t.Error("stored credential should match the returned one")
		}
		if store.puts != 1 {
			t.Errorf("expected 1 persist, got %d", store.puts)
		}
	})

	t.Run("No Refresh Token Fails", func(t *testing.T) {
		store := newMemoryStore()
		expired := credExpiringIn(0)
		expired.RefreshToken = ""
		store.creds["user:a"] = expired

		m := NewManager(store, &fakeExchanger{}, 60*time.Second)

		_, err := m.Resolve(ctx, "user:a")
		if !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Fatalf("expected ErrNoRefreshToken, got %v", err)
		}
	})

	t.Run("Refresh Failure Leaves Store Untouched", func(t *testing.T) {
		store := newMemoryStore()
		store.creds["user:a"] = credExpiringIn(0)
		exchanger := &fakeExchanger{err: errors.New("invalid_grant")}

		m := NewManager(store, exchanger, 60*time.Second)

		if _, err := m.Resolve(ctx, "user:a"); err == nil {
			t.Fatal("expected refresh error")
		}

		stored, _ := store.GetCredential("user:a")
		if stored.AccessToken != "old-token" {
			t.Error("failed refresh should not overwrite the stored credential")
		}
		if store.puts != 0 {
			t.Errorf("expected no persists, got %d", store.puts)
		}
	})

	t.Run("Missing Credential Fails", func(t *testing.T) {
		m := NewManager(newMemoryStore(), &fakeExchanger{}, 60*time.Second)

		_, err := m.Resolve(ctx, "user:unknown")
		if !errors.Is(err, shared.ErrMissingCredential) {
			t.Fatalf("expected ErrMissingCredential, got %v", err)
		}
	})

	t.Run("Serializes Refreshes Per User", func(t *testing.T) {
		store := newMemoryStore()
		store.creds["user:a"] = credExpiringIn(0)
		exchanger := &fakeExchanger{
			result: models.Credential{
				AccessToken: "new-token",
				ExpiresAt:   time.Now().Add(time.Hour),
			},
			blockFor: 50 * time.Millisecond,
		}

		m := NewManager(store, exchanger, 60*time.Second)

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := m.Resolve(ctx, "user:a"); err != nil {
					t.Errorf("resolve failed: %v", err)
				}
			}()
		}
		wg.Wait()

		// The first resolution refreshes and persists; the rest find a
		// valid credential and pass through.
		if exchanger.callCount() != 1 {
			t.Errorf("expected exactly 1 refresh, got %d", exchanger.callCount())
		}
	})
}

func TestManagerSource(t *testing.T) {
	ctx := context.Background()

	store := newMemoryStore()
	store.creds["user:a"] = credExpiringIn(10 * time.Minute)

	m := NewManager(store, &fakeExchanger{}, 60*time.Second)

	source := m.Source("user:a")
	if got := source(); got.AccessToken != "" {
		t.Errorf("expected empty credential before resolve, got %q", got.AccessToken)
	}

	if _, err := m.Resolve(ctx, "user:a"); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if got := source(); got.AccessToken != "old-token" {
		t.Errorf("source should see the resolved credential, got %q", got.AccessToken)
	}

	m.Forget("user:a")
	if got := source(); got.AccessToken != "" {
		t.Error("source should see nothing after Forget")
	}
}
