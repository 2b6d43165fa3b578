package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/duskmoor/spotsweep/internal/models"
	"github.com/duskmoor/spotsweep/internal/server"
	"github.com/duskmoor/spotsweep/internal/shared"
	"github.com/duskmoor/spotsweep/internal/spotify"
	"github.com/urfave/cli/v3"
)

const loginTimeout = 5 * time.Minute

// spotifyIdentity resolves the user URI behind a fresh credential by
// fetching the profile endpoint with it.
func spotifyIdentity(ctx context.Context, cred models.Credential) (string, error) {
	client := spotify.New(spotify.Options{
		Credentials: func() models.Credential { return cred },
	})
	user, err := client.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	return user.URI, nil
}

// AuthLogin runs the authorization-code flow: it starts a local callback
// server, opens the consent page, and waits for the one-shot result.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	if config.Spotify.ClientID == "" || config.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingConfig)
	}

	stack, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer stack.Close()

	oauthConfig := spotify.NewOAuthConfig(config.Spotify)
	handler := server.NewOAuthHandler(oauthConfig, stack.users, spotifyIdentity, true)
	state := shared.GenerateID()
	handler.AddState(state)

	router := server.NewBasicRouter()
	router.Handler(handler)

	srv := &http.Server{Addr: config.Server.Addr(), Handler: router}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	authURL := oauthConfig.AuthCodeURL(state)
	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL to authorize:\n%s\n", authURL)
	} else {
		r.logger.Info("opening browser for authorization")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
			r.writePlain("Open this URL to authorize:\n%s\n", authURL)
		}
	}

	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return fmt.Errorf("authorization failed: %w", err)
		}
		r.logger.Info("authentication successful", "user", result.UserURI)
		return r.writePlain("✓ Logged in as %s\n", result.UserURI)
	case err := <-serveErr:
		return fmt.Errorf("callback server failed: %w", err)
	case <-time.After(loginTimeout):
		return fmt.Errorf("timed out waiting for authorization")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AuthStatus lists the stored accounts.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	stack, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer stack.Close()

	uris, err := stack.users.ListUserURIs()
	if err != nil {
		return err
	}

	if len(uris) == 0 {
		return r.writePlain("No authenticated accounts. Run 'spotsweep auth login' first.\n")
	}

	for _, uri := range uris {
		r.writePlain("%s\n", uri)
	}
	return nil
}

// AuthLogout removes a stored account. Its watchers and outcomes go with it.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	userURI := cmd.StringArg("user")
	if userURI == "" {
		return fmt.Errorf("%w: user URI is required", shared.ErrInvalidArgument)
	}

	config := r.loadConfig(cmd)

	stack, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer stack.Close()

	if err := stack.users.Delete(userURI); err != nil {
		return err
	}

	stack.manager.Forget(userURI)
	return r.writePlain("✓ Removed %s\n", userURI)
}
