/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the credit management server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse environment configuration
  2. Initialize storage backend (SQLite or PostgreSQL)
  3. Build the allocation engine and API handler
  4. Configure HTTP router and rounding scheduler
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the rounding scheduler
  4. Close database connection
  5. Exit

ENVIRONMENT:
  PORT, HOST, STORE_DRIVER, SQLITE_PATH, DATABASE_URL, DUST_THRESHOLD,
  ROUNDING_SCHEDULE, LOG_LEVEL. See config/config.go.

EXAMPLES:
  # Run with the default embedded database
  ./server

  # Run against PostgreSQL
  STORE_DRIVER=postgres DATABASE_URL=postgres://... ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite, store/postgres: Database implementations
*/
package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/JuanMCarini/Credit-Manager/api"
	"github.com/JuanMCarini/Credit-Manager/config"
	"github.com/JuanMCarini/Credit-Manager/credit"
	"github.com/JuanMCarini/Credit-Manager/engine"
	"github.com/JuanMCarini/Credit-Manager/store/postgres"
	"github.com/JuanMCarini/Credit-Manager/store/sqlite"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
	}

	store, closer, err := openStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize storage")
	}
	defer closer.Close()

	eng := engine.New(store,
		engine.WithDustThreshold(credit.NewMoney(cfg.DustThreshold)),
	)

	handler := api.NewHandler(store, eng, log)
	router := api.NewRouter(handler)

	scheduler := api.NewRoundingScheduler(eng, log)
	if err := scheduler.Start(cfg.RoundingSchedule); err != nil {
		log.WithError(err).Fatal("failed to start rounding scheduler")
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":   cfg.Addr(),
			"driver": cfg.Driver,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}
	scheduler.Stop()

	log.Info("server stopped")
}

// openStore builds the configured storage backend. The returned closer
// owns the underlying connection.
func openStore(cfg config.Config) (credit.Store, io.Closer, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		s, err := postgres.New(cfg.DatabaseURL, credit.DefaultTypeCatalog())
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		s, err := sqlite.New(cfg.SQLitePath, credit.DefaultTypeCatalog())
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
}
