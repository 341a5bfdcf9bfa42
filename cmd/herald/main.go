package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"herald-bot/internal/analytics"
	"herald-bot/internal/bot"
	"herald-bot/internal/config"
	"herald-bot/internal/engine"
	"herald-bot/internal/storage"
	"herald-bot/internal/web"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	commandEngine := engine.New(store, logger, engine.Options{
		NoticeDeleteSeconds: cfg.NoticeDeleteSeconds,
		ErrorColor:          cfg.Colors.Error,
	})
	analyticsService := analytics.New(store)

	botSvc, err := bot.New(cfg, logger, store, commandEngine, analyticsService)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	var adminServer *http.Server
	if cfg.Admin.Enabled {
		var resync web.ResyncFunc
		if cfg.RegisterSlashCommands {
			resync = botSvc.SyncSlashCommands
		}
		server := web.NewServer(store, commandEngine, analyticsService, logger, cfg.Admin.Token, cfg.Admin.RatePerSecond, cfg.Admin.RateBurst, resync)
		adminServer = &http.Server{Addr: cfg.Admin.Addr, Handler: server.Router()}
		go func() {
			logger.Info("admin api enabled", zap.String("addr", cfg.Admin.Addr))
			if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("admin api error", zap.Error(err))
			}
		}()
	}

	var healthServer *http.Server
	if cfg.Health.Enabled {
		healthServer = &http.Server{Addr: cfg.Health.Addr}
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if adminServer != nil {
		_ = adminServer.Shutdown(ctx)
	}
	if healthServer != nil {
		_ = healthServer.Shutdown(ctx)
	}
	botSvc.Close(ctx)
}
