package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/duskmoor/spotsweep/internal/models"
	"github.com/duskmoor/spotsweep/internal/repositories"
	"github.com/duskmoor/spotsweep/internal/shared"
	"github.com/duskmoor/spotsweep/internal/spotify"
)

// WatcherStore is the watcher persistence surface the API needs.
type WatcherStore interface {
	Create(watcher *models.Watcher) error
	Get(id string) (*models.Watcher, error)
	ListByUser(userURI string) ([]*models.Watcher, error)
	ListBySource(source models.Endpoint) ([]*models.Watcher, error)
	Delete(id, userURI string) error
}

// OutcomeStore lists recorded transfer outcomes.
type OutcomeStore interface {
	ListByWatcher(watcherID string, limit int) ([]*models.Outcome, error)
}

// SyncRunner runs a single watcher immediately. The scheduler provides
// the implementation, so "sync now" and scheduled runs share one code path.
type SyncRunner interface {
	RunWatcher(ctx context.Context, watcher *models.Watcher) (int, error)
}

// WatcherAPI serves the watcher CRUD and sync-now JSON endpoints.
type WatcherAPI struct {
	watchers WatcherStore
	outcomes OutcomeStore
	runner   SyncRunner
	logger   *log.Logger
}

// NewWatcherAPI creates the watcher API handler.
func NewWatcherAPI(watchers WatcherStore, outcomes OutcomeStore, runner SyncRunner, logger *log.Logger) *WatcherAPI {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &WatcherAPI{watchers: watchers, outcomes: outcomes, runner: runner, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *WatcherAPI) Routes() []string {
	return []string{
		"POST /api/watchers",
		"GET /api/watchers",
		"DELETE /api/watchers/{id}",
		"POST /api/watchers/{id}/sync",
		"GET /api/watchers/{id}/outcomes",
	}
}

// watcherRequest is the creation payload. Source and target take a
// playlist ID, or "_liked" for the saved tracks collection.
type watcherRequest struct {
	UserURI      string `json:"user_uri"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	ShouldRemove bool   `json:"should_remove"`
	Interval     string `json:"interval"`
}

// watcherResponse is the JSON form of a watcher.
type watcherResponse struct {
	ID           string     `json:"id"`
	UserURI      string     `json:"user_uri"`
	Source       string     `json:"source"`
	Target       string     `json:"target"`
	ShouldRemove bool       `json:"should_remove"`
	Interval     string     `json:"interval"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	NextSyncAt   *time.Time `json:"next_sync_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toWatcherResponse(w *models.Watcher) watcherResponse {
	return watcherResponse{
		ID:           w.ID,
		UserURI:      w.UserURI,
		Source:       repositories.EndpointValue(w.Source),
		Target:       repositories.EndpointValue(w.Target),
		ShouldRemove: w.ShouldRemove,
		Interval:     w.Interval.String(),
		LastSyncAt:   w.LastSyncAt,
		NextSyncAt:   w.NextSyncAt,
		CreatedAt:    w.CreatedAt,
	}
}

func (h *WatcherAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch {
	case id == "" && r.Method == http.MethodPost:
		h.create(w, r)
	case id == "" && r.Method == http.MethodGet:
		h.list(w, r)
	case r.Method == http.MethodDelete:
		h.delete(w, r, id)
	case r.Method == http.MethodPost:
		h.syncNow(w, r, id)
	case r.Method == http.MethodGet:
		h.listOutcomes(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *WatcherAPI) create(w http.ResponseWriter, r *http.Request) {
	var req watcherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	source, err := repositories.ParseEndpoint(req.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid source endpoint")
		return
	}

	target, err := repositories.ParseEndpoint(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target endpoint")
		return
	}

	interval, err := models.ParseSyncInterval(req.Interval)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	watcher := &models.Watcher{
		UserURI:      req.UserURI,
		Source:       source,
		Target:       target,
		ShouldRemove: req.ShouldRemove,
		Interval:     interval,
	}

	if err := watcher.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// A target that is another watcher's removal-enabled source would be
	// swept as soon as we insert into it.
	sweepers, err := h.watchers.ListBySource(target)
	if err != nil {
		h.logger.Error("failed to check target endpoint", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create watcher")
		return
	}
	for _, other := range sweepers {
		if other.ShouldRemove {
			writeError(w, http.StatusConflict, "target playlist is already being swept by another watcher")
			return
		}
	}

	if err := h.watchers.Create(watcher); err != nil {
		if errors.Is(err, shared.ErrDuplicateWatcher) {
			writeError(w, http.StatusConflict, "watcher already exists")
			return
		}
		h.logger.Error("failed to create watcher", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create watcher")
		return
	}

	writeJSON(w, http.StatusCreated, toWatcherResponse(watcher))
}

func (h *WatcherAPI) list(w http.ResponseWriter, r *http.Request) {
	userURI := r.URL.Query().Get("user")
	if userURI == "" {
		writeError(w, http.StatusBadRequest, "missing user query parameter")
		return
	}

	watchers, err := h.watchers.ListByUser(userURI)
	if err != nil {
		h.logger.Error("failed to list watchers", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list watchers")
		return
	}

	responses := make([]watcherResponse, 0, len(watchers))
	for _, watcher := range watchers {
		responses = append(responses, toWatcherResponse(watcher))
	}

	writeJSON(w, http.StatusOK, responses)
}

func (h *WatcherAPI) delete(w http.ResponseWriter, r *http.Request, id string) {
	userURI := r.URL.Query().Get("user")
	if userURI == "" {
		writeError(w, http.StatusBadRequest, "missing user query parameter")
		return
	}

	if err := h.watchers.Delete(id, userURI); err != nil {
		if errors.Is(err, shared.ErrWatcherNotFound) {
			writeError(w, http.StatusNotFound, "watcher not found")
			return
		}
		h.logger.Error("failed to delete watcher", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to delete watcher")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// syncNow runs the watcher synchronously and reports the insert count.
// Structured remote errors surface their message verbatim (e.g. a
// permission rejection on delete); everything else is generic.
func (h *WatcherAPI) syncNow(w http.ResponseWriter, r *http.Request, id string) {
	watcher, err := h.watchers.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "watcher not found")
		return
	}

	inserted, err := h.runner.RunWatcher(r.Context(), watcher)
	if err != nil {
		var apiErr *spotify.APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden:
			writeError(w, http.StatusForbidden, apiErr.Message+" (disable removal for playlists you do not own)")
		case errors.As(err, &apiErr):
			writeError(w, apiErr.Status, apiErr.Message)
		case errors.Is(err, shared.ErrInvalidTransfer):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, shared.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "rate limited, try again later")
		default:
			h.logger.Error("sync now failed", "watcher", id, "err", err)
			writeError(w, http.StatusInternalServerError, "sync failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"inserted": inserted})
}

func (h *WatcherAPI) listOutcomes(w http.ResponseWriter, r *http.Request, id string) {
	outcomes, err := h.outcomes.ListByWatcher(id, 50)
	if err != nil {
		h.logger.Error("failed to list outcomes", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list outcomes")
		return
	}

	writeJSON(w, http.StatusOK, outcomes)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
