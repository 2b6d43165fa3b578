package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/duskmoor/spotsweep/internal/models"
	"github.com/duskmoor/spotsweep/internal/shared"
	"github.com/duskmoor/spotsweep/internal/spotify"
)

type fakeWatcherStore struct {
	watchers  map[string]*models.Watcher
	createErr error
}

func newFakeWatcherStore() *fakeWatcherStore {
	return &fakeWatcherStore{watchers: map[string]*models.Watcher{}}
}

func (f *fakeWatcherStore) Create(watcher *models.Watcher) error {
	if f.createErr != nil {
		return f.createErr
	}
	watcher.ID = shared.GenerateID()
	watcher.CreatedAt = time.Now()
	f.watchers[watcher.ID] = watcher
	return nil
}

func (f *fakeWatcherStore) Get(id string) (*models.Watcher, error) {
	w, ok := f.watchers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrWatcherNotFound, id)
	}
	return w, nil
}

func (f *fakeWatcherStore) ListByUser(userURI string) ([]*models.Watcher, error) {
	var out []*models.Watcher
	for _, w := range f.watchers {
		if w.UserURI == userURI {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWatcherStore) ListBySource(source models.Endpoint) ([]*models.Watcher, error) {
	var out []*models.Watcher
	for _, w := range f.watchers {
		if w.Source.Equal(source) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWatcherStore) Delete(id, userURI string) error {
	w, ok := f.watchers[id]
	if !ok || w.UserURI != userURI {
		return fmt.Errorf("%w: %s", shared.ErrWatcherNotFound, id)
	}
	delete(f.watchers, id)
	return nil
}

type fakeOutcomeStore struct {
	outcomes map[string][]*models.Outcome
}

func (f *fakeOutcomeStore) ListByWatcher(watcherID string, limit int) ([]*models.Outcome, error) {
	return f.outcomes[watcherID], nil
}

type fakeRunner struct {
	inserted int
	err      error
	ran      []string
}

func (f *fakeRunner) RunWatcher(ctx context.Context, watcher *models.Watcher) (int, error) {
	f.ran = append(f.ran, watcher.ID)
	return f.inserted, f.err
}

func newTestAPI(store *fakeWatcherStore, outcomes *fakeOutcomeStore, runner *fakeRunner) http.Handler {
	if outcomes == nil {
		outcomes = &fakeOutcomeStore{outcomes: map[string][]*models.Outcome{}}
	}
	if runner == nil {
		runner = &fakeRunner{}
	}

	router := NewBasicRouter()
	router.Handler(NewWatcherAPI(store, outcomes, runner, shared.NewLogger(nil)))
	return router
}

func createBody(t *testing.T, source, target string) *bytes.Reader {
	t.Helper()

	data, err := json.Marshal(map[string]any{
		"user_uri": "spotify:user:a",
		"source":   source,
		"target":   target,
		"interval": "hour",
	})
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	return bytes.NewReader(data)
}

func TestWatcherAPICreate(t *testing.T) {
	t.Run("Creates A Watcher", func(t *testing.T) {
		store := newFakeWatcherStore()
		api := newTestAPI(store, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/watchers", createBody(t, "_liked", "pl1"))
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["source"] != "_liked" || resp["target"] != "pl1" {
			t.Errorf("unexpected response %v", resp)
		}
		if len(store.watchers) != 1 {
			t.Errorf("expected 1 stored watcher, got %d", len(store.watchers))
		}
	})

	t.Run("Rejects Invalid Interval", func(t *testing.T) {
		api := newTestAPI(newFakeWatcherStore(), nil, nil)

		data, _ := json.Marshal(map[string]any{
			"user_uri": "spotify:user:a",
			"source":   "pl1",
			"target":   "pl2",
			"interval": "fortnight",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/watchers", bytes.NewReader(data))
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("Rejects Self Transfer", func(t *testing.T) {
		api := newTestAPI(newFakeWatcherStore(), nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/watchers", createBody(t, "pl1", "pl1"))
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("Rejects Target Swept By Another Watcher", func(t *testing.T) {
		store := newFakeWatcherStore()
		store.Create(&models.Watcher{
			UserURI:      "spotify:user:b",
			Source:       models.PlaylistEndpoint("pl1"),
			Target:       models.PlaylistEndpoint("archive"),
			ShouldRemove: true,
			Interval:     models.IntervalHour,
		})

		api := newTestAPI(store, nil, nil)

		// pl1 is drained by the existing watcher; inserting into it would
		// be undone on that watcher's next run.
		req := httptest.NewRequest(http.MethodPost, "/api/watchers", createBody(t, "_liked", "pl1"))
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Maps Duplicate To Conflict", func(t *testing.T) {
		store := newFakeWatcherStore()
		store.createErr = shared.ErrDuplicateWatcher
		api := newTestAPI(store, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/watchers", createBody(t, "_liked", "pl1"))
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})
}

func TestWatcherAPIList(t *testing.T) {
	store := newFakeWatcherStore()
	store.Create(&models.Watcher{
		UserURI:  "spotify:user:a",
		Source:   models.SavedEndpoint(),
		Target:   models.PlaylistEndpoint("pl1"),
		Interval: models.IntervalHour,
	})
	api := newTestAPI(store, nil, nil)

	t.Run("Requires User Parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/watchers", nil)
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("Lists By User", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/watchers?user=spotify:user:a", nil)
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var watchers []map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &watchers); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(watchers) != 1 {
			t.Errorf("expected 1 watcher, got %d", len(watchers))
		}
	})
}

func TestWatcherAPIDelete(t *testing.T) {
	store := newFakeWatcherStore()
	watcher := &models.Watcher{
		UserURI:  "spotify:user:a",
		Source:   models.SavedEndpoint(),
		Target:   models.PlaylistEndpoint("pl1"),
		Interval: models.IntervalHour,
	}
	store.Create(watcher)
	api := newTestAPI(store, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/watchers/"+watcher.ID+"?user=spotify:user:a", nil)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/watchers/"+watcher.ID+"?user=spotify:user:a", nil)
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestWatcherAPISyncNow(t *testing.T) {
	newStoreWithWatcher := func() (*fakeWatcherStore, *models.Watcher) {
		store := newFakeWatcherStore()
		watcher := &models.Watcher{
			UserURI:  "spotify:user:a",
			Source:   models.SavedEndpoint(),
			Target:   models.PlaylistEndpoint("pl1"),
			Interval: models.IntervalHour,
		}
		store.Create(watcher)
		return store, watcher
	}

	t.Run("Reports Inserted Count", func(t *testing.T) {
		store, watcher := newStoreWithWatcher()
		runner := &fakeRunner{inserted: 7}
		api := newTestAPI(store, nil, runner)

		req := httptest.NewRequest(http.MethodPost, "/api/watchers/"+watcher.ID+"/sync", nil)
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp map[string]int
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["inserted"] != 7 {
			t.Errorf("expected 7 inserted, got %d", resp["inserted"])
		}
		if len(runner.ran) != 1 || runner.ran[0] != watcher.ID {
			t.Errorf("expected the watcher to run once, got %v", runner.ran)
		}
	})

	t.Run("Unknown Watcher Is Not Found", func(t *testing.T) {
		api := newTestAPI(newFakeWatcherStore(), nil, &fakeRunner{})

		req := httptest.NewRequest(http.MethodPost, "/api/watchers/missing/sync", nil)
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("Permission Rejection Surfaces The Message", func(t *testing.T) {
		store, watcher := newStoreWithWatcher()
		runner := &fakeRunner{err: &spotify.APIError{Status: http.StatusForbidden, Message: "Insufficient client scope"}}
		api := newTestAPI(store, nil, runner)

		req := httptest.NewRequest(http.MethodPost, "/api/watchers/"+watcher.ID+"/sync", nil)
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}

		var resp map[string]string
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["error"] == "" || !bytes.Contains([]byte(resp["error"]), []byte("Insufficient client scope")) {
			t.Errorf("expected the remote message in the error, got %q", resp["error"])
		}
	})

	t.Run("Invalid Transfer Is Bad Request", func(t *testing.T) {
		store, watcher := newStoreWithWatcher()
		runner := &fakeRunner{err: fmt.Errorf("%w: source and target are the same endpoint", shared.ErrInvalidTransfer)}
		api := newTestAPI(store, nil, runner)

		req := httptest.NewRequest(http.MethodPost, "/api/watchers/"+watcher.ID+"/sync", nil)
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestWatcherAPIOutcomes(t *testing.T) {
	store, watcher := newFakeWatcherStore(), &models.Watcher{
		UserURI:  "spotify:user:a",
		Source:   models.SavedEndpoint(),
		Target:   models.PlaylistEndpoint("pl1"),
		Interval: models.IntervalHour,
	}
	store.Create(watcher)

	outcomes := &fakeOutcomeStore{outcomes: map[string][]*models.Outcome{
		watcher.ID: {
			{ID: "o1", WatcherID: watcher.ID, Inserted: 3},
			{ID: "o2", WatcherID: watcher.ID, Error: "rate limited"},
		},
	}}
	api := newTestAPI(store, outcomes, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/watchers/"+watcher.ID+"/outcomes", nil)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got []*models.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 outcomes, got %d", len(got))
	}
}
