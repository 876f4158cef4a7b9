// Package app wires configuration into a ready-to-use tracker: the selected
// store, the event stream and the tool dispatcher.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go"

	"github.com/p-n-ai/learning-tracker/internal/curriculum"
	"github.com/p-n-ai/learning-tracker/internal/platform/cache"
	"github.com/p-n-ai/learning-tracker/internal/platform/config"
	"github.com/p-n-ai/learning-tracker/internal/platform/database"
	"github.com/p-n-ai/learning-tracker/internal/toolapi"
	"github.com/p-n-ai/learning-tracker/internal/tracker"
)

// App holds the long-lived dependencies of a process.
type App struct {
	Tracker    *tracker.Tracker
	Dispatcher *toolapi.Dispatcher

	ready   []func(context.Context) error
	closers []func()
}

// NewLogger builds the process logger from config.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Open connects to the configured store and, when a cache URL is set, to
// Redis for progress events. The caller must Close the App.
func Open(ctx context.Context, cfg *config.Config, opts ...tracker.Option) (*App, error) {
	a := &App{}

	store, err := a.openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.EventsEnabled() {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		a.ready = append(a.ready, c.HealthCheck)
		opts = append([]tracker.Option{
			tracker.WithEventLogger(tracker.NewRedisEventLogger(c, cfg.Events.Stream, cfg.Events.MaxLen)),
		}, opts...)
		slog.Info("progress events enabled", "stream", cfg.Events.Stream)
	}

	a.Tracker = tracker.New(store, opts...)
	a.Dispatcher, err = toolapi.NewDispatcher(a.Tracker)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (tracker.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		var db *database.DB
		err := retry.Do(
			func() error {
				var err error
				db, err = database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
				return err
			},
			retry.Context(ctx),
			retry.Attempts(max(cfg.Database.ConnectAttempts, 1)),
			retry.Delay(500*time.Millisecond),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				slog.Warn("database not reachable, retrying", "attempt", n+1, "error", err)
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.ready = append(a.ready, db.HealthCheck)

		store, err := tracker.NewPostgresStore(ctx, db.Pool)
		if err != nil {
			return nil, err
		}
		slog.Info("using postgres store")
		return store, nil

	default:
		path := cfg.Store.SQLitePath()
		db, err := database.OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		store, err := tracker.NewSQLiteStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		a.ready = append(a.ready, db.PingContext)
		slog.Info("using sqlite store", "path", path)
		return store, nil
	}
}

// Ready checks every backing connection.
func (a *App) Ready(ctx context.Context) error {
	for _, check := range a.ready {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Seed creates the tutorial from a curriculum file unless one already
// exists. It reports whether a tutorial was created.
func (a *App) Seed(ctx context.Context, path string) (bool, error) {
	def, err := curriculum.LoadFile(path)
	if err != nil {
		return false, err
	}
	tut, err := a.Tracker.CreateTutorial(ctx, def)
	if errors.Is(err, tracker.ErrTutorialExists) {
		slog.Info("tutorial already exists, skipping seed", "file", path)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("seeding from %s: %w", path, err)
	}
	slog.Info("tutorial seeded", "file", path, "tutorial_id", tut.ID)
	return true, nil
}
