package spotify

import (
	"fmt"
	"time"

	"github.com/duskmoor/spotsweep/internal/shared"
)

// APIError is a structured error decoded from the API's error envelope.
// The remote status code is preserved so upstream layers can map it
// faithfully (e.g. 403 on a delete the user is not allowed to perform).
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify %d error: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return shared.ErrAPIRequest
}

// RateLimitError is returned for 429 responses. It is transient and should
// not be treated as a signal about watcher health.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

func (e *RateLimitError) Unwrap() error {
	return shared.ErrRateLimited
}
