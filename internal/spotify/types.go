package spotify

// User represents the current user's profile, reduced to the fields the
// engine needs. The URI is the stable key credentials and watchers are
// stored under.
type User struct {
	ID          string `json:"id"`
	URI         string `json:"uri"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

type owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracks struct {
	Total int `json:"total"`
}

// Playlist represents a simplified playlist object as returned by the
// current-user playlists listing.
type Playlist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Owner  owner          `json:"owner"`
	Public bool           `json:"public"`
	Tracks playlistTracks `json:"tracks"`
	URI    string         `json:"uri"`
}

// trackObject is the playable item embedded in saved-track and
// playlist-item wrappers. Type discriminates tracks from other playable
// items (podcast episodes); only tracks participate in transfers.
type trackObject struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	IsLocal bool   `json:"is_local"`
	URI     string `json:"uri"`
}

// savedTrackItem wraps a track in the saved-tracks listing.
type savedTrackItem struct {
	AddedAt string      `json:"added_at"`
	Track   trackObject `json:"track"`
}

// playlistItem wraps a track in a playlist listing. Track is nullable for
// items the API can no longer resolve.
type playlistItem struct {
	AddedAt string       `json:"added_at"`
	IsLocal bool         `json:"is_local"`
	Track   *trackObject `json:"track"`
}

// snapshotResponse is returned by playlist mutation endpoints.
type snapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

// errorEnvelope is the API's structural error body.
type errorEnvelope struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// syncable reports whether the track can be written to another collection.
// Locally-uploaded files and non-track items are excluded from reads and
// diff computation.
func (t trackObject) syncable() bool {
	return t.ID != "" && !t.IsLocal && (t.Type == "" || t.Type == "track")
}
