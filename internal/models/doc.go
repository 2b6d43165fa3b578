// Package models defines the domain types for the playlist sync service:
// endpoints, watchers, credentials, and transfer outcomes.
//
// Types here are persistence-agnostic. Serialization of endpoints into
// their storage representation lives in the repositories package.
package models
