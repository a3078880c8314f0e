/*
app.go - Dependency wiring shared by the server and the CLI

PURPOSE:
  Turns a loaded config.Config into a ready engine: opens the SQLite store,
  selects the notification backend, loads the holiday calendar and the
  rule set, and builds engine.Service.

STARTUP SEQUENCE:
  1. Open SQLite store (creates the parent directory of the file)
  2. Notification backend: the same SQLite store, or Redis
  3. Holiday calendar: fixed national holidays + stored ones
  4. Rule set: built-in, or the JSON document at compliance.ruleset_path
  5. Engine with metrics, logger, work week and flex settings

SEE ALSO:
  - cmd/server/main.go
  - cmd/zeitctl
*/
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/config"
	"github.com/warp/worktime-engine/engine"
	"github.com/warp/worktime-engine/factory"
	"github.com/warp/worktime-engine/flextime"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/metrics"
	"github.com/warp/worktime-engine/notify"
	"github.com/warp/worktime-engine/store/redisstore"
	"github.com/warp/worktime-engine/store/sqlite"
	"github.com/warp/worktime-engine/worktime"
)

// App holds the wired components. Close releases them.
type App struct {
	Config        *config.Config
	Store         *sqlite.Store
	Notifications notify.Store
	Calendar      *generic.Holidays
	Engine        *engine.Service
	Metrics       *metrics.Recorder
	Log           logrus.FieldLogger

	closers []func() error
}

// Build wires the application from cfg.
func Build(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	a := &App{Config: cfg, Log: log, Metrics: metrics.New()}

	if cfg.Storage.DBPath != ":memory:" {
		if dir := filepath.Dir(cfg.Storage.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
	}
	store, err := sqlite.New(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	switch cfg.Storage.NotificationBackend {
	case "redis":
		rs := redisstore.NewNotificationStore(cfg.Storage.RedisAddr)
		if !rs.Healthy(ctx) {
			a.Close()
			return nil, fmt.Errorf("redis at %s is not reachable", cfg.Storage.RedisAddr)
		}
		a.Notifications = rs
		a.closers = append(a.closers, rs.Close)
	default:
		a.Notifications = store
	}

	if a.Calendar, err = loadCalendar(ctx, store); err != nil {
		a.Close()
		return nil, err
	}

	checker, err := loadChecker(cfg.Compliance.RuleSetPath)
	if err != nil {
		a.Close()
		return nil, err
	}

	week, err := cfg.WorkWeek()
	if err != nil {
		a.Close()
		return nil, err
	}

	flex := flextime.DefaultAggregator()
	flex.IncludeMissingDays = cfg.Flex.IncludeMissingDays
	flex.TrimToWorkWindow = cfg.Flex.TrimToWorkWindow
	flex.Defaults = cfg.DefaultThresholds()

	a.Engine = engine.New(store, a.Notifications,
		engine.WithChecker(checker),
		engine.WithLogger(log),
		engine.WithMetrics(a.Metrics),
		engine.WithWorkWeek(week),
		engine.WithCalendar(a.Calendar),
		engine.WithFlex(flex),
	)

	log.WithFields(logrus.Fields{
		"db":            cfg.Storage.DBPath,
		"notifications": cfg.Storage.NotificationBackend,
		"rules":         len(checker.Rules()),
	}).Debug("application wired")
	return a, nil
}

// EvalOptions returns the configured compliance options.
func (a *App) EvalOptions() compliance.Options {
	return compliance.Options{IncludeMissingDays: a.Config.Compliance.IncludeMissingDays}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

func loadCalendar(ctx context.Context, store *sqlite.Store) (*generic.Holidays, error) {
	cal, err := worktime.LoadCalendar(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	return cal, nil
}

func loadChecker(path string) (*compliance.Checker, error) {
	if path == "" {
		return compliance.DefaultChecker(), nil
	}
	checker, err := factory.LoadRuleSet(path)
	if err != nil {
		return nil, fmt.Errorf("load rule set: %w", err)
	}
	return checker, nil
}
