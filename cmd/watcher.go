package main

import (
	"context"
	"fmt"
	"time"

	"github.com/duskmoor/spotsweep/internal/models"
	"github.com/duskmoor/spotsweep/internal/shared"
	"github.com/urfave/cli/v3"
)

// parseEndpointFlag maps a CLI endpoint value to an Endpoint. "liked"
// selects the user's saved tracks; anything else is a playlist ID.
func parseEndpointFlag(value string) (models.Endpoint, error) {
	if value == "" {
		return models.Endpoint{}, fmt.Errorf("%w: endpoint is required", shared.ErrInvalidArgument)
	}
	if value == "liked" {
		return models.SavedEndpoint(), nil
	}
	return models.PlaylistEndpoint(value), nil
}

// WatcherAdd creates a new watcher.
func (r *Runner) WatcherAdd(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	source, err := parseEndpointFlag(cmd.String("from"))
	if err != nil {
		return err
	}

	target, err := parseEndpointFlag(cmd.String("to"))
	if err != nil {
		return err
	}

	interval, err := models.ParseSyncInterval(cmd.String("interval"))
	if err != nil {
		return err
	}

	stack, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer stack.Close()

	// Inserting into a playlist that another watcher sweeps on removal
	// would undo the sync on its next run.
	sweepers, err := stack.watchers.ListBySource(target)
	if err != nil {
		return err
	}
	for _, other := range sweepers {
		if other.ShouldRemove {
			return fmt.Errorf("%w: target is swept by watcher %s", shared.ErrInvalidInput, other.ID)
		}
	}

	watcher := &models.Watcher{
		UserURI:      cmd.String("user"),
		Source:       source,
		Target:       target,
		ShouldRemove: cmd.Bool("remove"),
		Interval:     interval,
	}

	if err := stack.watchers.Create(watcher); err != nil {
		return err
	}

	r.logger.Info("watcher created", "id", watcher.ID)
	return r.writePlain("✓ Watcher %s: %s → %s every %s\n", watcher.ID, watcher.Source, watcher.Target, watcher.Interval)
}

// WatcherList lists a user's watchers.
func (r *Runner) WatcherList(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	stack, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer stack.Close()

	watchers, err := stack.watchers.ListByUser(cmd.String("user"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(watchers, true)
	}

	if len(watchers) == 0 {
		return r.writePlain("No watchers. Run 'spotsweep watcher add' to create one.\n")
	}

	for _, w := range watchers {
		next := "now"
		if w.NextSyncAt != nil {
			next = w.NextSyncAt.Format(time.RFC3339)
		}
		removal := ""
		if w.ShouldRemove {
			removal = " (removes from source)"
		}
		r.writePlain("%s  %s → %s  every %s%s  next %s\n", w.ID, w.Source, w.Target, w.Interval, removal, next)
	}
	return nil
}

// WatcherRemove deletes a watcher.
func (r *Runner) WatcherRemove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: watcher ID is required", shared.ErrInvalidArgument)
	}

	config := r.loadConfig(cmd)

	stack, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer stack.Close()

	if err := stack.watchers.Delete(id, cmd.String("user")); err != nil {
		return err
	}

	return r.writePlain("✓ Watcher %s removed\n", id)
}

// WatcherOutcomes shows a watcher's recent sync history.
func (r *Runner) WatcherOutcomes(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: watcher ID is required", shared.ErrInvalidArgument)
	}

	config := r.loadConfig(cmd)

	stack, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer stack.Close()

	outcomes, err := stack.outcomes.ListByWatcher(id, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(outcomes, true)
	}

	if len(outcomes) == 0 {
		return r.writePlain("No outcomes recorded yet.\n")
	}

	for _, o := range outcomes {
		if o.Error != "" {
			r.writePlain("%s  failed: %s\n", o.CreatedAt.Format(time.RFC3339), o.Error)
			continue
		}
		r.writePlain("%s  inserted %d\n", o.CreatedAt.Format(time.RFC3339), o.Inserted)
	}
	return nil
}

// SyncNow runs one watcher, or every due watcher with --all.
func (r *Runner) SyncNow(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	stack, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer stack.Close()

	if cmd.Bool("all") {
		stack.scheduler.Tick(ctx)
		return nil
	}

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: watcher ID is required (or pass --all)", shared.ErrInvalidArgument)
	}

	watcher, err := stack.watchers.Get(id)
	if err != nil {
		return err
	}

	inserted, err := stack.scheduler.RunWatcher(ctx, watcher)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	return r.writePlain("✓ Synced %s: %d inserted\n", id, inserted)
}
