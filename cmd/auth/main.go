// Entry point of the auth service. It owns the users table, verifies
// credentials, and issues the HS256 tokens the gateway verifies.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/taskgate/go-task-gateway/internal/config"
	httpapi "github.com/taskgate/go-task-gateway/internal/http"
	"github.com/taskgate/go-task-gateway/internal/observability"
	"github.com/taskgate/go-task-gateway/internal/repo"
	"github.com/taskgate/go-task-gateway/internal/services"
	"github.com/taskgate/go-task-gateway/internal/sysutil"
)

var version = "dev" // set via -ldflags at build time

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	shutdownOTel, err := observability.SetupOTel(context.Background(), cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.Auth.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Auth.DBPath).Msg("open database failed")
	}
	if err := repo.MigrateAuth(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	seedUser(db, cfg)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterAuthRoutes(r, db, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("auth service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := shutdownOTel(ctx); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
}

// seedUser creates the configured demo user when AUTH_SEED_EMAIL is set.
// An already existing user is not an error, so restarts are idempotent.
func seedUser(db *gorm.DB, cfg config.Config) {
	if cfg.Auth.SeedEmail == "" {
		return
	}
	svc := &services.AuthService{DB: db, Secret: cfg.JWT.Secret}
	if _, err := svc.Register(context.Background(), cfg.Auth.SeedEmail, cfg.Auth.SeedPassword, "user"); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return
		}
		log.Warn().Err(err).Str("email", cfg.Auth.SeedEmail).Msg("seed user failed")
		return
	}
	log.Info().Str("email", cfg.Auth.SeedEmail).Msg("seed user created")
}
