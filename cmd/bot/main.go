package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kubanez-create/Calibration/internal/adapters/memory"
	"github.com/kubanez-create/Calibration/internal/adapters/postgres"
	redisstore "github.com/kubanez-create/Calibration/internal/adapters/redis"
	"github.com/kubanez-create/Calibration/internal/adapters/tdlib"
	"github.com/kubanez-create/Calibration/internal/config"
	"github.com/kubanez-create/Calibration/internal/conversation"
	delivery "github.com/kubanez-create/Calibration/internal/delivery/http"
	"github.com/kubanez-create/Calibration/internal/metrics"
	"github.com/kubanez-create/Calibration/internal/ports"
	"github.com/kubanez-create/Calibration/internal/useCases"
)

const (
	envDev  = "dev"
	envProd = "prod"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ошибка загрузки конфига: %v\n", err)
		os.Exit(1)
	}
	logger := setupLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewRecordStore(ctx, cfg.DBDSN, logger)
	if err != nil {
		logger.Error("store init failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	sessions, err := buildSessionStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("session store init failed", "err", err)
		os.Exit(1)
	}

	svc := useCases.NewPredictionService(store, logger)

	handler := delivery.NewHandler(store)
	router := delivery.NewRouter(handler)
	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	// Запускаем HTTP сервер в горутине:
	go func() {
		logger.Info("HTTP server starting", "addr", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
				os.Exit(1)
			}
			logger.Info("HTTP server closed")
		}
	}()

	gateway, err := tdlib.NewGateway(cfg.APIID, cfg.APIHash, cfg.BotToken, logger)
	if err != nil {
		logger.Error("TDLib init failed", "error", err)
		os.Exit(1)
	}
	machine := conversation.NewMachine(svc, sessions, gateway, logger)

	logger.Info("bot started")
	for {
		updates, err := gateway.Listen()
		if err != nil {
			logger.Error("Listen failed, retrying", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for ev := range updates {
			metrics.EventsReceived.Inc()
			go machine.HandleEvent(ctx, ev)
		}

		select {
		case <-ctx.Done():
			logger.Info("bot shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
			return
		default:
		}
		logger.Warn("Listen exited, reconnecting")
	}
}

func buildSessionStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.SessionStore, error) {
	if cfg.SessionBackend != "redis" {
		return memory.NewSessionStore(cfg.SessionTTL), nil
	}
	rs := redisstore.NewSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionTTL, logger)
	if err := rs.Ping(ctx); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rs, nil
}

func setupLogger(env string) *slog.Logger {
	var logger *slog.Logger

	switch env {
	case envProd:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	case envDev:
		fallthrough
	default:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return logger
}
