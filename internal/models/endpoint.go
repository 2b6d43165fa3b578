package models

// Endpoint identifies one side of a transfer: either the user's built-in
// saved tracks collection ("Liked Tracks") or an explicit playlist.
//
// The zero value is not meaningful; construct via [SavedEndpoint] or
// [PlaylistEndpoint].
type Endpoint struct {
	saved bool
	id    string
}

// SavedEndpoint returns the endpoint for the user's saved tracks collection.
// There is exactly one per user and it carries no identifier.
func SavedEndpoint() Endpoint {
	return Endpoint{saved: true}
}

// PlaylistEndpoint returns the endpoint for the playlist with the given ID.
func PlaylistEndpoint(id string) Endpoint {
	return Endpoint{id: id}
}

// IsSaved reports whether the endpoint is the saved tracks collection.
func (e Endpoint) IsSaved() bool {
	return e.saved
}

// PlaylistID returns the playlist identifier and whether the endpoint
// refers to an explicit playlist.
func (e Endpoint) PlaylistID() (string, bool) {
	if e.saved {
		return "", false
	}
	return e.id, true
}

// Equal reports whether two endpoints are structurally equal.
// A watcher's source and target must never be equal.
func (e Endpoint) Equal(other Endpoint) bool {
	return e.saved == other.saved && e.id == other.id
}

func (e Endpoint) String() string {
	if e.saved {
		return "Liked Tracks"
	}
	return e.id
}
