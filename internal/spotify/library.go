package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// playlistItemFields limits playlist item responses to the fields the diff
// needs. Sent on the first page request only; the next-page URL returned by
// the server already embeds it.
const playlistItemFields = "limit,offset,total,next,items(is_local,track(id,type,is_local,uri))"

// CurrentUser retrieves the authenticated user's profile.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUserPlaylists retrieves all of the current user's playlists.
func (c *Client) CurrentUserPlaylists(ctx context.Context) ([]Playlist, error) {
	first := fmt.Sprintf("%s/me/playlists?limit=%d", c.baseURL, c.pageSize)
	return collectPages[Playlist](ctx, c, first)
}

// SavedTrackIDs retrieves the IDs of every track in the user's saved
// collection, newest-first as the API returns them. Non-track and local
// items are excluded.
func (c *Client) SavedTrackIDs(ctx context.Context) ([]string, error) {
	first := fmt.Sprintf("%s/me/tracks?limit=%d", c.baseURL, c.pageSize)

	items, err := collectPages[savedTrackItem](ctx, c, first)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.Track.syncable() {
			ids = append(ids, item.Track.ID)
		}
	}

	return ids, nil
}

// PlaylistTrackIDs retrieves the IDs of every syncable track in the given
// playlist, in playlist order.
func (c *Client) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	first := fmt.Sprintf("%s/playlists/%s/tracks?limit=%d&fields=%s",
		c.baseURL, url.PathEscape(playlistID), c.pageSize, url.QueryEscape(playlistItemFields))

	items, err := collectPages[playlistItem](ctx, c, first)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.IsLocal || item.Track == nil {
			continue
		}
		if item.Track.syncable() {
			ids = append(ids, item.Track.ID)
		}
	}

	return ids, nil
}

// AddPlaylistTracks appends tracks to a playlist, splitting oversized
// batches into sequential chunked requests. Returns the snapshot ID
// recorded for each chunk.
func (c *Client) AddPlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/playlists/%s/tracks", c.baseURL, url.PathEscape(playlistID))

	var snapshots []string
	for _, chunk := range chunkStrings(trackIDs, c.insertChunkSize) {
		body := map[string]any{"uris": trackURIs(chunk)}

		var snapshot snapshotResponse
		if err := c.do(ctx, http.MethodPost, endpoint, body, &snapshot); err != nil {
			return snapshots, err
		}
		snapshots = append(snapshots, snapshot.SnapshotID)
	}

	return snapshots, nil
}

// RemovePlaylistTracks removes all occurrences of the given tracks from a
// playlist, chunked to the deletion cap.
func (c *Client) RemovePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/playlists/%s/tracks", c.baseURL, url.PathEscape(playlistID))

	var snapshots []string
	for _, chunk := range chunkStrings(trackIDs, c.deleteChunkSize) {
		tracks := make([]map[string]string, len(chunk))
		for i, id := range chunk {
			tracks[i] = map[string]string{"uri": trackURI(id)}
		}
		body := map[string]any{"tracks": tracks}

		var snapshot snapshotResponse
		if err := c.do(ctx, http.MethodDelete, endpoint, body, &snapshot); err != nil {
			return snapshots, err
		}
		snapshots = append(snapshots, snapshot.SnapshotID)
	}

	return snapshots, nil
}

// RemoveSavedTracks removes tracks from the user's saved collection,
// chunked to the deletion cap.
func (c *Client) RemoveSavedTracks(ctx context.Context, trackIDs []string) error {
	endpoint := c.baseURL + "/me/tracks"

	for _, chunk := range chunkStrings(trackIDs, c.deleteChunkSize) {
		body := map[string]any{"ids": chunk}
		if err := c.do(ctx, http.MethodDelete, endpoint, body, nil); err != nil {
			return err
		}
	}

	return nil
}

// chunkStrings splits ids into consecutive slices of at most size elements.
func chunkStrings(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}

	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}

	return chunks
}

func trackURI(id string) string {
	return "spotify:track:" + id
}

func trackURIs(ids []string) []string {
	uris := make([]string, len(ids))
	for i, id := range ids {
		uris[i] = trackURI(id)
	}
	return uris
}
