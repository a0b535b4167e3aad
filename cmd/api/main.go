package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tripsched/internal/api"
	"tripsched/internal/buildinfo"
	"tripsched/internal/config"
	"tripsched/internal/metrics"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		// logger config depends on cfg; report on stderr
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	var log *zap.Logger
	if cfg.Log.Development {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	metrics.RegisterDefault()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srvDeps, err := api.NewServer(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to init server", zap.Error(err))
	}
	defer func() { _ = srvDeps.Close() }()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           srvDeps.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	log.Info("API listening",
		zap.String("addr", addr),
		zap.String("version", buildinfo.Version),
		zap.String("auth", cfg.Auth.Mode),
		zap.Bool("postgres", cfg.Database.URL != ""),
		zap.Bool("redis", cfg.RedisURL != ""),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server error", zap.Error(err))
	}
	log.Info("server stopped")
}
