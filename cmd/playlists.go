package main

import (
	"context"

	"github.com/duskmoor/spotsweep/internal/spotify"
	"github.com/urfave/cli/v3"
)

// Playlists lists the user's playlists, to find IDs for watcher endpoints.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	stack, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer stack.Close()

	userURI := cmd.String("user")
	if _, err := stack.manager.Resolve(ctx, userURI); err != nil {
		return err
	}

	client := spotify.New(spotify.Options{
		Credentials:       stack.manager.Source(userURI),
		PageSize:          config.Sync.PageSize,
		RequestsPerSecond: config.Sync.RequestsPerSec,
	})

	playlists, err := client.CurrentUserPlaylists(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	if len(playlists) == 0 {
		return r.writePlain("No playlists found.\n")
	}

	r.writePlain("liked  Liked Tracks (use 'liked' as a watcher source)\n")
	for _, p := range playlists {
		r.writePlain("%s  %s (%d tracks)\n", p.ID, p.Name, p.Tracks.Total)
	}
	return nil
}
