package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/duskmoor/spotsweep/internal/server"
	"github.com/duskmoor/spotsweep/internal/shared"
	"github.com/duskmoor/spotsweep/internal/spotify"
	"github.com/urfave/cli/v3"
)

// Serve runs the scheduler loop alongside the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	stack, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer stack.Close()

	if err := shared.RunMigrations(stack.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	oauthConfig := spotify.NewOAuthConfig(config.Spotify)
	oauthHandler := server.NewOAuthHandler(oauthConfig, stack.users, spotifyIdentity, false)

	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(oauthHandler)
	router.Handler(server.NewLoginHandler(oauthConfig, oauthHandler))
	router.Handler(server.NewWatcherAPI(stack.watchers, stack.outcomes, stack.scheduler, r.logger))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: config.Server.Addr(), Handler: router}

	serveErr := make(chan error, 1)
	go func() {
		r.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		stack.scheduler.Run(ctx)
	}()

	select {
	case err := <-serveErr:
		stop()
		<-schedulerDone
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("http shutdown incomplete", "error", err)
	}

	<-schedulerDone
	return nil
}
