package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/onepuzle/puzle-ai/internal/ai"
	"github.com/onepuzle/puzle-ai/internal/auth"
	"github.com/onepuzle/puzle-ai/internal/chat"
	"github.com/onepuzle/puzle-ai/internal/config"
	"github.com/onepuzle/puzle-ai/internal/conversation"
	"github.com/onepuzle/puzle-ai/internal/db"
	"github.com/onepuzle/puzle-ai/internal/events"
	"github.com/onepuzle/puzle-ai/internal/httpapi"
	"github.com/onepuzle/puzle-ai/internal/httpapi/handlers"
	"github.com/onepuzle/puzle-ai/internal/janitor"
	"github.com/onepuzle/puzle-ai/internal/logging"
	"github.com/onepuzle/puzle-ai/internal/prompt"
	"github.com/onepuzle/puzle-ai/internal/ratelimit"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	router, cleanup, err := buildServer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

// buildServer wires every component. Optional backends that are missing or
// unreachable are logged and skipped; the chat path works either way.
func buildServer(ctx context.Context, cfg config.Config, log zerolog.Logger) (*gin.Engine, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	composer, err := prompt.New()
	if err != nil {
		return nil, nil, err
	}

	gw, err := buildGateway(ctx, cfg)
	if err != nil {
		if cfg.HasAPIKey() {
			return nil, nil, err
		}
		log.Warn().Err(err).Str("provider", cfg.AIProvider).Msg("completion provider unavailable")
	}
	if !cfg.HasAPIKey() {
		log.Warn().Msg("API_KEY is not set; chat replies will report a configuration error")
	} else {
		log.Info().Str("provider", cfg.AIProvider).Str("model", cfg.Model).Str("api_key", logging.Redact(cfg.APIKey)).Msg("completion provider ready")
	}

	limiter := buildLimiter(ctx, cfg, log, &closers)

	var repo *chat.Repo
	var authSvc *auth.Service
	if gdb := openDatabase(ctx, cfg, log); gdb != nil {
		repo = chat.NewRepo(gdb)
		authSvc = auth.NewService(repo)
		if sqlDB, err := gdb.DB(); err == nil {
			closers = append(closers, func() { _ = sqlDB.Close() })
		}
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.RabbitURL != "" {
		p, err := events.NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, turn events disabled")
		} else {
			publisher = p
			closers = append(closers, func() { _ = p.Close() })
		}
	}

	svc := chat.NewService(chat.Options{
		Gateway:   gw,
		HasAPIKey: cfg.HasAPIKey(),
		Limiter:   limiter,
		Composer:  composer,
		Memory:    conversation.NewMemory(cfg.HistoryMax),
		Locks:     conversation.NewLocks(),
		Repo:      repo,
		Events:    publisher,
		Log:       log,

		MaxMessageChars: cfg.MaxMessageChars,
	})

	sessions := auth.NewSessions(cfg.SecretKey, auth.SessionTTL)
	h := handlers.NewHandler(cfg, svc, authSvc, sessions, log)

	log.Info().Bool("db_ready", svc.DBReady()).Int("daily_limit", cfg.DailyLimit).Int("history_max", cfg.HistoryMax).Msg("chat service ready")
	return httpapi.NewRouter(h, log), cleanup, nil
}

// buildGateway returns nil and an error when the provider cannot be built.
func buildGateway(ctx context.Context, cfg config.Config) (chat.Completer, error) {
	reg := ai.NewRegistry()
	ai.RegisterBuiltins(reg, cfg.AIBaseURL, cfg.APIKey)

	p, err := reg.Get(ctx, cfg.AIProvider, ai.Params{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (known: %s)", err, strings.Join(reg.Names(), ", "))
	}
	return ai.NewGateway(cfg.AIProvider, p, cfg.Model, cfg.AITimeout, cfg.AIMaxConcurrent), nil
}

func buildLimiter(ctx context.Context, cfg config.Config, log zerolog.Logger, closers *[]func()) ratelimit.Limiter {
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pctx).Err()
		cancel()
		if err == nil {
			log.Info().Str("addr", cfg.RedisAddr).Msg("using shared redis rate limiter")
			*closers = append(*closers, func() { _ = rdb.Close() })
			return ratelimit.NewRedis(rdb, cfg.DailyLimit)
		}
		_ = rdb.Close()
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, using in-memory rate limiter")
	}

	mem := ratelimit.NewMemory(cfg.DailyLimit)
	j, err := janitor.New(janitor.DefaultSchedule, log, map[string]janitor.Pruner{"ratelimit": mem})
	if err != nil {
		log.Warn().Err(err).Msg("janitor disabled")
		return mem
	}
	j.Start(ctx)
	return mem
}

// openDatabase returns nil when no store is configured or it cannot be reached.
func openDatabase(ctx context.Context, cfg config.Config, log zerolog.Logger) *gorm.DB {
	if !cfg.DBConfigured() {
		log.Info().Msg("DATABASE_URL not set, running without accounts or saved chats")
		return nil
	}
	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("database unavailable, running without accounts or saved chats")
		return nil
	}
	if err := db.Migrate(gdb); err != nil {
		log.Warn().Err(err).Msg("database migration failed, running without accounts or saved chats")
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
		return nil
	}
	return gdb
}
