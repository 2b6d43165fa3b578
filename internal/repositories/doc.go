// package repositories provides persistence for users, watchers, and
// transfer outcomes over SQLite.
//
// Endpoint values are stored as tagged strings ('_liked' for the saved
// collection, otherwise the raw playlist id); the serialize/parse pair
// lives here so the tag never leaks into business logic.
package repositories
