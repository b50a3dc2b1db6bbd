// Package bootstrap wires configuration, logging, the database and the user
// services shared by both server binaries.
package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"

	"github.com/nadigross/userbase/internal/config"
	"github.com/nadigross/userbase/internal/database"
	"github.com/nadigross/userbase/internal/logging"
	"github.com/nadigross/userbase/internal/repository"
	"github.com/nadigross/userbase/internal/services"
)

type Runtime struct {
	Config *config.Config
	DB     *gorm.DB
	Log    *slog.Logger
	Users  *services.UserService
	Health *services.HealthService

	pgLog       *logging.PGHandler
	cleanupDone chan struct{}
	sentry      bool
}

// Start loads config, connects and migrates the database and installs the
// default logger. source tags persisted log rows ("api", "mcp").
func Start(source string) (*Runtime, error) {
	cfg := config.Load()
	stdoutHandler := logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := database.Open(database.Options{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	// ERROR+ records are also batched into system_logs
	pgLog := logging.NewPGHandler(db, source)
	log := slog.New(logging.NewMultiHandler(stdoutHandler, pgLog))
	slog.SetDefault(log)

	cleanupDone := make(chan struct{})
	logging.StartCleanup(db, cfg.LogRetention, cleanupDone)

	rt := &Runtime{
		Config:      cfg,
		DB:          db,
		Log:         log,
		pgLog:       pgLog,
		cleanupDone: cleanupDone,
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
			ServerName:       source,
		}); err != nil {
			log.Error("sentry init failed", "error", err)
		} else {
			rt.sentry = true
		}
	}

	rt.Users = services.NewUserService(repository.NewGormUserRepository(db))
	rt.Health = services.NewHealthService(db, rt.Users)
	return rt, nil
}

// SentryEnabled reports whether error tracking was initialized.
func (r *Runtime) SentryEnabled() bool {
	return r.sentry
}

// Close flushes buffered logs and events and closes the database.
func (r *Runtime) Close() {
	close(r.cleanupDone)
	r.pgLog.Stop()
	if r.sentry {
		sentry.Flush(2 * time.Second)
	}
	if err := database.Close(r.DB); err != nil {
		r.Log.Error("database close error", "error", err)
	}
}
