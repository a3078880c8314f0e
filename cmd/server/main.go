/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the working-time engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load config (TOML file, .env, WORKTIME_* variables)
  3. Wire store, notification backend, calendar, rule set and engine
  4. Configure HTTP router and start the compliance scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  TOML config path (default: worktime.toml, optional)
  -port    HTTP server port, overrides the config
  -db      SQLite database path, overrides the config
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler (waits for a running pass)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database and redis connections

EXAMPLES:
  ./server -config=./worktime.toml
  ./server -db=":memory:" -port=3000
  WORKTIME_NOTIFICATION_BACKEND=redis ./server

SEE ALSO:
  - app/app.go: Dependency wiring
  - api/server.go: Router configuration
  - config/config.go: Configuration keys
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/worktime-engine/api"
	"github.com/warp/worktime-engine/app"
	"github.com/warp/worktime-engine/config"
	"github.com/warp/worktime-engine/logging"
)

func main() {
	configPath := flag.String("config", "worktime.toml", "TOML config path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Storage.DBPath = *dbPath
	}

	log := logging.New(cfg.Logging)

	ctx := context.Background()
	application, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize")
	}
	defer application.Close()

	handler := api.NewHandler(application.Engine, application.Store, application.Calendar, log)
	handler.Compliance = application.EvalOptions()

	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins: cfg.Server.CORSOrigins,
		Metrics:     application.Metrics,
	})

	scheduler := api.NewComplianceScheduler(application.Engine, application.Store, log)
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.Interval = time.Duration(cfg.Scheduler.IntervalMinutes) * time.Minute
	scheduler.LookbackDays = cfg.Scheduler.LookbackDays
	scheduler.Workers = cfg.Scheduler.Workers
	scheduler.Options = application.EvalOptions()
	scheduler.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	log.Info("server stopped")
}
