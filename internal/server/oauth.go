package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/duskmoor/spotsweep/internal/models"
	"github.com/duskmoor/spotsweep/internal/shared"
	"golang.org/x/oauth2"
)

// CredentialSaver persists a freshly authorized credential keyed by the
// user's URI.
type CredentialSaver interface {
	Upsert(userURI string, cred models.Credential) error
}

// IdentityFunc resolves the user URI behind a credential, typically by
// fetching the /me profile with it.
type IdentityFunc func(ctx context.Context, cred models.Credential) (string, error)

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	UserURI    string
	Credential models.Credential
	err        error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler handles the authorization-code callback: it validates the
// state parameter, exchanges the code, resolves the user identity, and
// persists the credential.
//
// In one-shot mode (CLI login) exactly one callback is accepted and the
// result is delivered on the Result channel. In server mode states are
// registered per login redirect and consumed on use.
type OAuthHandler struct {
	config   *oauth2.Config
	saver    CredentialSaver
	identity IdentityFunc
	oneShot  bool

	mu         sync.Mutex
	states     map[string]struct{}
	resultChan chan OAuthResult
	once       sync.Once
	done       bool
}

// NewOAuthHandler creates an OAuth callback handler. When oneShot is true
// the first callback completes the flow and later ones are rejected.
func NewOAuthHandler(config *oauth2.Config, saver CredentialSaver, identity IdentityFunc, oneShot bool) *OAuthHandler {
	return &OAuthHandler{
		config:     config,
		saver:      saver,
		identity:   identity,
		oneShot:    oneShot,
		states:     make(map[string]struct{}),
		resultChan: make(chan OAuthResult, 1),
	}
}

// AddState registers a state token issued with an authorization redirect.
// State tokens are random (uuid) for CSRF protection and single-use.
func (h *OAuthHandler) AddState(state string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states[state] = struct{}{}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP handles the OAuth callback request.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.oneShot {
		h.mu.Lock()
		if h.done {
			h.mu.Unlock()
			http.Error(w, "Callback already processed", http.StatusBadRequest)
			return
		}
		h.done = true
		h.mu.Unlock()
	}

	state := r.URL.Query().Get("state")
	if !h.consumeState(state) {
		h.fail(w, fmt.Errorf("invalid state parameter"), http.StatusBadRequest, "Invalid state parameter")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errParam := r.URL.Query().Get("error")
		errDesc := r.URL.Query().Get("error_description")
		h.fail(w, fmt.Errorf("authorization failed: %s - %s", errParam, errDesc), http.StatusBadRequest, "Authorization failed")
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.fail(w, fmt.Errorf("token exchange failed: %w", err), http.StatusInternalServerError, "Token exchange failed")
		return
	}

	cred := credentialFromToken(token)

	userURI, err := h.identity(r.Context(), cred)
	if err != nil {
		h.fail(w, fmt.Errorf("failed to resolve user: %w", err), http.StatusInternalServerError, "Failed to resolve user")
		return
	}

	if err := h.saver.Upsert(userURI, cred); err != nil {
		h.fail(w, fmt.Errorf("failed to store credential: %w", err), http.StatusInternalServerError, "Failed to store credential")
		return
	}

	h.send(OAuthResult{UserURI: userURI, Credential: cred})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Authorization Successful</title></head>
<body>
  <h1>Authorization successful</h1>
  <p>Your playlists are now being watched. You can close this window.</p>
</body>
</html>
`)
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Only meaningful in one-shot mode; the channel receives exactly one
// result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

func (h *OAuthHandler) consumeState(state string) bool {
	if state == "" {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.states[state]; !ok {
		return false
	}
	delete(h.states, state)
	return true
}

func (h *OAuthHandler) fail(w http.ResponseWriter, err error, status int, msg string) {
	if h.oneShot {
		h.send(OAuthResult{err: err})
	}
	http.Error(w, msg, status)
}

func (h *OAuthHandler) send(result OAuthResult) {
	if !h.oneShot {
		return
	}
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// credentialFromToken mirrors spotify.CredentialFromToken without
// importing the client package into the handler.
func credentialFromToken(token *oauth2.Token) models.Credential {
	cred := models.Credential{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
		RefreshToken: token.RefreshToken,
	}
	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		cred.Scopes = strings.Fields(scope)
	}
	return cred
}

// LoginHandler starts the authorization flow from the browser: it mints a
// single-use state, registers it with the callback handler, and redirects
// to the provider's consent page.
type LoginHandler struct {
	config *oauth2.Config
	oauth  *OAuthHandler
}

// NewLoginHandler creates a LoginHandler bound to the given callback handler.
func NewLoginHandler(config *oauth2.Config, oauth *OAuthHandler) *LoginHandler {
	return &LoginHandler{config: config, oauth: oauth}
}

// Routes returns the HTTP routes this handler serves.
func (h *LoginHandler) Routes() []string {
	return []string{"GET /login"}
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	state := shared.GenerateID()
	h.oauth.AddState(state)
	http.Redirect(w, r, h.config.AuthCodeURL(state), http.StatusFound)
}
