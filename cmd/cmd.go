// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the configuration file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config file, initialize database, and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authenticate with Spotify using OAuth2",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "List authenticated accounts",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthStatus,
			},
			{
				Name:  "logout",
				Usage: "Remove a stored account and its watchers",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "user"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogout,
			},
		},
	}
}

// watcherCommand manages playlist watchers.
func watcherCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watcher",
		Aliases: []string{"w"},
		Usage:   "Manage playlist watchers",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create a watcher syncing one playlist into another",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "user",
						Usage:    "Owner user URI",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "from",
						Usage:    "Source playlist ID, or 'liked' for saved tracks",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "to",
						Usage:    "Target playlist ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "remove",
						Usage: "Remove tracks from the source after syncing",
					},
					&cli.StringFlag{
						Name:  "interval",
						Usage: "Sync interval: hour, day, or week",
						Value: "hour",
					},
				},
				Action: r.WatcherAdd,
			},
			{
				Name:  "list",
				Usage: "List watchers for a user",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "user",
						Usage:    "Owner user URI",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.WatcherList,
			},
			{
				Name:  "remove",
				Usage: "Delete a watcher",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "user",
						Usage:    "Owner user URI",
						Required: true,
					},
				},
				Action: r.WatcherRemove,
			},
			{
				Name:  "outcomes",
				Usage: "Show recent sync outcomes for a watcher",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of outcomes to show",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.WatcherOutcomes,
			},
		},
	}
}

// syncCommand runs watchers immediately, outside the schedule.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run a watcher now",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Run every due watcher instead of a single one",
			},
		},
		Action: r.SyncNow,
	}
}

// playlistsCommand lists the user's playlists so watcher endpoints can
// be looked up by ID.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List your playlists and their IDs",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "user",
				Usage: "User URI to list playlists for",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit JSON instead of plain text",
			},
		},
		Action: r.Playlists,
	}
}

// serveCommand runs the scheduler daemon and the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"watch"},
		Usage:   "Run the sync scheduler and HTTP API",
		Flags:   []cli.Flag{configFlag()},
		Action:  r.Serve,
	}
}
