package models

import (
	"time"
)

// Credential is one user's delegated-access token set. It is owned by the
// user row and mutated only by the token lifecycle manager; the last
// written value is authoritative.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// ExpiredWithin reports whether the access token expires inside the given
// safety margin. The margin absorbs clock skew and in-flight request
// latency, so a token expiring in 30s is treated as already expired under
// a 60s margin.
func (c Credential) ExpiredWithin(margin time.Duration) bool {
	return !time.Now().Add(margin).Before(c.ExpiresAt)
}

// CanRefresh reports whether a refresh exchange is possible. Absence of a
// refresh token is terminal until the user re-authenticates.
func (c Credential) CanRefresh() bool {
	return c.RefreshToken != ""
}
