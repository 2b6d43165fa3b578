package engine

import (
	"context"
	"fmt"

	"github.com/duskmoor/spotsweep/internal/models"
	"github.com/duskmoor/spotsweep/internal/shared"
)

// Library is the slice of the Spotify client the transfer algorithm needs.
type Library interface {
	// SavedTrackIDs returns the user's saved tracks, newest-first.
	SavedTrackIDs(ctx context.Context) ([]string, error)

	// PlaylistTrackIDs returns a playlist's syncable tracks in playlist order.
	PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error)

	// AddPlaylistTracks appends tracks to a playlist in chunked requests.
	AddPlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) ([]string, error)

	// RemovePlaylistTracks removes tracks from a playlist in chunked requests.
	RemovePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) ([]string, error)

	// RemoveSavedTracks removes tracks from the saved collection in chunked requests.
	RemoveSavedTracks(ctx context.Context, trackIDs []string) error
}

// Transfer copies the tracks present in source but absent from target into
// target, optionally sweeping the entire source afterwards. Returns the
// number of tracks inserted.
//
// Re-running with no intervening external changes inserts nothing: the
// insertion set is the difference between the two reads. When
// removeFromSource is set, the whole pre-run source set is removed, not
// just the newly inserted subset; everything read is considered consumed.
func Transfer(ctx context.Context, lib Library, source, target models.Endpoint, removeFromSource bool) (int, error) {
	if source.Equal(target) {
		return 0, fmt.Errorf("%w: source and target are the same endpoint", shared.ErrInvalidTransfer)
	}
	if target.IsSaved() {
		return 0, fmt.Errorf("%w: saved tracks cannot be a transfer target", shared.ErrInvalidTransfer)
	}

	sourceIDs, err := readEndpoint(ctx, lib, source)
	if err != nil {
		return 0, fmt.Errorf("failed to read source %s: %w", source, err)
	}

	if len(sourceIDs) == 0 {
		return 0, nil
	}

	targetID, _ := target.PlaylistID()

	targetIDs, err := lib.PlaylistTrackIDs(ctx, targetID)
	if err != nil {
		return 0, fmt.Errorf("failed to read target %s: %w", target, err)
	}

	toInsert := difference(sourceIDs, targetIDs)

	// Source reads come back newest-first; reverse so the target
	// accumulates in chronological order.
	reverse(toInsert)

	if len(toInsert) > 0 {
		if _, err := lib.AddPlaylistTracks(ctx, targetID, toInsert); err != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", target, err)
		}
	}

	if removeFromSource {
		if err := removeAll(ctx, lib, source, sourceIDs); err != nil {
			return len(toInsert), fmt.Errorf("failed to sweep source %s: %w", source, err)
		}
	}

	return len(toInsert), nil
}

// readEndpoint returns the full ordered track-ID list for an endpoint.
func readEndpoint(ctx context.Context, lib Library, e models.Endpoint) ([]string, error) {
	if e.IsSaved() {
		return lib.SavedTrackIDs(ctx)
	}
	id, _ := e.PlaylistID()
	return lib.PlaylistTrackIDs(ctx, id)
}

// removeAll deletes the given tracks from an endpoint.
func removeAll(ctx context.Context, lib Library, e models.Endpoint, ids []string) error {
	if e.IsSaved() {
		return lib.RemoveSavedTracks(ctx, ids)
	}
	id, _ := e.PlaylistID()
	_, err := lib.RemovePlaylistTracks(ctx, id, ids)
	return err
}

// difference returns the elements of source absent from target, preserving
// source order and dropping duplicates.
func difference(source, target []string) []string {
	excluded := make(map[string]struct{}, len(target))
	for _, id := range target {
		excluded[id] = struct{}{}
	}

	var result []string
	for _, id := range source {
		if _, ok := excluded[id]; ok {
			continue
		}
		excluded[id] = struct{}{}
		result = append(result, id)
	}

	return result
}

func reverse(ids []string) {
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
}
