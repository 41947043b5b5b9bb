package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tictactoe/internal/app"
	"tictactoe/internal/config"
	"tictactoe/internal/logger"
	"tictactoe/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open store", "driver", cfg.StoreDriver, "error", err)
	}
	defer stores.Close()

	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rl, err := ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory rate limits", "addr", cfg.RedisAddr, "error", err)
			limiter = ratelimit.NewMemoryLimiter()
		} else {
			defer rl.Close()
			limiter = rl
		}
	} else {
		limiter = ratelimit.NewMemoryLimiter()
	}

	a, err := app.New(cfg, stores, limiter)
	if err != nil {
		logger.Fatal("failed to build app", "error", err)
	}
	a.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           a.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}
