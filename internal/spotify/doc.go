// Package spotify implements the authenticated Spotify Web API client used
// by the sync engine.
//
// Request shapes are based on https://developer.spotify.com/documentation/web-api/reference/
//
// Every request re-derives its bearer header from the client's
// [CredentialSource], so a token refreshed mid-batch is picked up by the
// next call. Reads go through a generic cursor-paginated collector; batch
// writes are chunked to the API's per-request item caps.
package spotify
