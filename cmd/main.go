package main

import (
	"babelchat/backend/internal/api/handler"
	"babelchat/backend/internal/chathub"
	"babelchat/backend/internal/config"
	"babelchat/backend/internal/lingo"
	"babelchat/backend/internal/localization"
	"babelchat/backend/internal/logger"
	"babelchat/backend/internal/rooms"
	"babelchat/backend/internal/session"
	"babelchat/backend/internal/storage"
	"babelchat/backend/internal/telegram"
	"babelchat/backend/internal/translation"
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger:         logger.Gorm(cfg.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, nil, err
	}
	return db, rdb, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg := logger.Init(cfg.LogLevel)
	slog.Info("babelchat_starting", "addr", cfg.HTTPAddr)

	db, rdb, err := setupDependencies(cfg)
	if err != nil {
		slog.Error("dependencies_failed", "error", err)
		os.Exit(1)
	}
	store := storage.NewStorageService(db, rdb)
	if err := store.AutoMigrate(); err != nil {
		slog.Error("migrations_failed", "error", err)
		os.Exit(1)
	}
	slog.Info("storage_ready")

	// Realtime channel
	hub := chathub.NewHub(storage.NewRedisBroker(rdb), store, chathub.Options{HistoryLimit: cfg.HistoryLimit})
	runCtx, stopRun := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		if err := hub.Run(runCtx); err != nil {
			slog.Error("hub_stopped", "error", err)
		}
	}()

	// Translation pipeline
	engine := lingo.NewClient(lingo.Config{
		BaseURL:    cfg.LingoAPIURL,
		APIKey:     cfg.LingoAPIKey,
		Timeout:    cfg.TranslationTimeout,
		RatePerSec: float64(cfg.TranslationRatePerSec),
		Burst:      cfg.TranslationBurst,
	})
	proxy := translation.NewProxyCache(rdb, cfg.TranslationCacheTTL)
	gateway := translation.NewGateway(engine, proxy, cfg.TranslationTimeout)
	translations := translation.NewService(translation.NewCache(store), gateway, cfg.TranslationConcurrency)

	roomSvc, err := rooms.NewService(store, hub)
	if err != nil {
		slog.Error("rooms_init_failed", "error", err)
		os.Exit(1)
	}
	sessions := session.NewController(hub, translations, roomSvc, store, cfg.TypingWindow,
		session.WithConcurrency(cfg.TranslationConcurrency))

	var bot *telegram.BotService
	if cfg.TelegramBotToken != "" {
		localizer, err := localization.NewLocalizer()
		if err != nil {
			slog.Error("locales_failed", "error", err)
			os.Exit(1)
		}
		bot, err = telegram.NewBotService(cfg.TelegramBotToken, store, roomSvc, sessions, localizer)
		if err != nil {
			slog.Error("telegram_init_failed", "error", err)
			os.Exit(1)
		}
		go bot.Run(runCtx)
	} else {
		slog.Info("telegram_disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(lg))
	h := handler.NewHandler(store, roomSvc, hub, translations, gateway, sessions, cfg.JWTSecret)
	h.Proxy = proxy
	h.RegisterRoutes(r)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http_server_failed", "error", err)
			os.Exit(1)
		}
	}()
	slog.Info("http_server_started", "addr", cfg.HTTPAddr)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"babelchat": inOrder(
				shutdownStep{"http", server.Shutdown},
				shutdownStep{"realtime", func(ctx context.Context) error {
					if bot != nil {
						bot.Close()
					}
					stopRun()
					select {
					case <-hubDone:
						return nil
					case <-ctx.Done():
						return ctx.Err()
					}
				}},
				shutdownStep{"storage", func(ctx context.Context) error {
					var errs []error
					if sqlDB, err := db.DB(); err == nil {
						errs = append(errs, sqlDB.Close())
					}
					errs = append(errs, rdb.Close())
					return errors.Join(errs...)
				}},
			),
		},
	)

	exitCode := <-wait
	slog.Info("babelchat_stopped", "exit_code", exitCode)
	os.Exit(exitCode)
}
