package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/vardhanngg/vibron-socket/internal/adapters/http"
	"github.com/vardhanngg/vibron-socket/internal/adapters/store"
	"github.com/vardhanngg/vibron-socket/internal/app"
	"github.com/vardhanngg/vibron-socket/internal/config"
	"github.com/vardhanngg/vibron-socket/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	roomStore := buildStore(ctx, cfg)

	reg := app.NewRegistry()
	orch := app.NewOrchestrator(roomStore, reg, cfg.RoomTTL)
	rec := app.NewReconciler(roomStore, reg, cfg.ReconcileInterval)
	go rec.Run(ctx)

	r := router.SetupRouter(ctx, cfg, orch)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("vibron sync server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

// buildStore wires the configured backend. An unreachable redis at startup
// is the one fatal condition: the relay cannot serve anything without its
// store, so fail loudly instead of limping.
func buildStore(ctx context.Context, cfg *config.Config) core.RoomStore {
	switch cfg.Store {
	case "memory":
		log.Warn().Msg("using in-memory store; rooms will not survive a restart")
		return store.NewMemory()
	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rs := store.NewRedis(client, cfg.KeyPrefix, cfg.StoreTimeout)
		if err := rs.Ping(ctx); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("cannot reach redis")
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
		return rs
	}
}
