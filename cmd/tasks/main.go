// Entry point of the tasks service. It owns the tasks and idempotency_keys
// tables, executes creation commands at most once per (owner, key), and
// serves cached list pages.
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

	"github.com/taskgate/go-task-gateway/internal/cache"
	"github.com/taskgate/go-task-gateway/internal/config"
	httpapi "github.com/taskgate/go-task-gateway/internal/http"
	"github.com/taskgate/go-task-gateway/internal/observability"
	"github.com/taskgate/go-task-gateway/internal/repo"
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

	db, err := repo.OpenSQLite(cfg.Tasks.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Tasks.DBPath).Msg("open database failed")
	}
	if err := repo.MigrateTasks(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	store := buildCache(cfg)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterTasksRoutes(r, db, store, cfg)

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
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("tasks service listening")
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

// buildCache selects the list cache backend. With REDIS_ADDR set the cache
// is shared across replicas; otherwise a process-local cache is used, which
// is only coherent in single-instance deployments.
func buildCache(cfg config.Config) cache.Store {
	if cfg.Tasks.RedisAddr == "" {
		log.Info().Msg("list cache: in-memory")
		return cache.NewMemory()
	}

	rds := cache.NewRedis(cfg.Tasks.RedisAddr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rds.Ping(ctx); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Tasks.RedisAddr).Msg("redis unreachable")
	}
	log.Info().Str("addr", cfg.Tasks.RedisAddr).Msg("list cache: redis")
	return rds
}
