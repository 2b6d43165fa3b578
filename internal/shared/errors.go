package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Credential errors
	ErrMissingCredential = fmt.Errorf("no stored credential")
	ErrNoRefreshToken    = fmt.Errorf("no refresh token available")
	ErrRefreshFailed     = fmt.Errorf("token refresh failed")

	// Remote API errors
	ErrRateLimited = fmt.Errorf("rate limited by remote API")
	ErrAPIRequest  = fmt.Errorf("API request failed")

	// Transfer errors
	ErrInvalidTransfer = fmt.Errorf("invalid transfer")

	// Persistence errors
	ErrStorage         = fmt.Errorf("storage operation failed")
	ErrWatcherNotFound = fmt.Errorf("watcher not found")
	ErrDuplicateWatcher = fmt.Errorf("watcher already exists")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
