package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/duskmoor/spotsweep/internal/auth"
	"github.com/duskmoor/spotsweep/internal/engine"
	"github.com/duskmoor/spotsweep/internal/repositories"
	"github.com/duskmoor/spotsweep/internal/shared"
	"github.com/duskmoor/spotsweep/internal/spotify"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, watcherCommand, playlistsCommand, syncCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig loads configuration from the --config flag path, falling
// back to defaults when the file is absent or unreadable.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	configPath := cmd.String("config")
	if configPath == "" {
		return r.config
	}

	if _, err := os.Stat(configPath); err != nil {
		return r.config
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "error", err)
		return r.config
	}

	return config
}

// openDatabase opens the configured sqlite database and applies pool settings.
func (r *Runner) openDatabase(config *shared.Config) (*sql.DB, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	return db, nil
}

// syncStack bundles the persistence and sync machinery most commands need.
type syncStack struct {
	db        *sql.DB
	users     *repositories.UserRepository
	watchers  *repositories.WatcherRepository
	outcomes  *repositories.OutcomeRepository
	manager   *auth.Manager
	scheduler *engine.Scheduler
}

func (s *syncStack) Close() error {
	return s.db.Close()
}

// buildStack wires repositories, the credential manager, the per-user
// client factory, and the scheduler against one database handle.
func (r *Runner) buildStack(config *shared.Config) (*syncStack, error) {
	db, err := r.openDatabase(config)
	if err != nil {
		return nil, err
	}

	users := repositories.NewUserRepository(db)
	watchers := repositories.NewWatcherRepository(db)
	outcomes := repositories.NewOutcomeRepository(db)

	exchanger := spotify.NewOAuthExchanger(config.Spotify)
	manager := auth.NewManager(users, exchanger, config.Sync.SafetyMargin())

	libraries := func(userURI string) engine.Library {
		return spotify.New(spotify.Options{
			Credentials:       manager.Source(userURI),
			PageSize:          config.Sync.PageSize,
			InsertChunkSize:   config.Sync.InsertChunkSize,
			DeleteChunkSize:   config.Sync.DeleteChunkSize,
			RequestsPerSecond: config.Sync.RequestsPerSec,
		})
	}

	scheduler := engine.NewScheduler(watchers, outcomes, manager, libraries, config.Sync.TickInterval(), r.logger)

	return &syncStack{
		db:        db,
		users:     users,
		watchers:  watchers,
		outcomes:  outcomes,
		manager:   manager,
		scheduler: scheduler,
	}, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
