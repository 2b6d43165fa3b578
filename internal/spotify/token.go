package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/duskmoor/spotsweep/internal/models"
	"github.com/duskmoor/spotsweep/internal/shared"
	"golang.org/x/oauth2"
)

const (
	authURL  = "https://accounts.spotify.com/authorize"
	tokenURL = "https://accounts.spotify.com/api/token"
)

// Scopes is the full permission set the sync engine needs: reading and
// sweeping the saved collection plus reading and modifying playlists.
var Scopes = []string{
	"user-library-read",
	"user-library-modify",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-public",
	"playlist-modify-private",
}

// NewOAuthConfig builds the [oauth2.Config] for the authorization code and
// refresh grants against the Spotify accounts service.
func NewOAuthConfig(cfg shared.SpotifyConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
	}
}

// Exchanger performs the refresh-token grant against the identity
// provider's token endpoint.
type Exchanger interface {
	Refresh(ctx context.Context, refreshToken string) (models.Credential, error)
}

// OAuthExchanger implements [Exchanger] over [oauth2.Config].
type OAuthExchanger struct {
	config *oauth2.Config
}

// NewOAuthExchanger creates an exchanger from Spotify app credentials.
func NewOAuthExchanger(cfg shared.SpotifyConfig) *OAuthExchanger {
	return &OAuthExchanger{config: NewOAuthConfig(cfg)}
}

// Refresh exchanges a refresh token for a new access token. Seeding the
// token source with only the refresh token forces the refresh grant rather
// than returning a cached access token.
func (e *OAuthExchanger) Refresh(ctx context.Context, refreshToken string) (models.Credential, error) {
	seed := &oauth2.Token{RefreshToken: refreshToken}

	token, err := e.config.TokenSource(ctx, seed).Token()
	if err != nil {
		return models.Credential{}, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	return CredentialFromToken(token), nil
}

// CredentialFromToken converts an [oauth2.Token] into the stored
// credential form, capturing the granted scope set when present.
func CredentialFromToken(token *oauth2.Token) models.Credential {
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
