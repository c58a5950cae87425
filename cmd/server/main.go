// Command server serves POST /predict on the address in server.addr.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/bookingrisk/pkg/config"
	"github.com/YuminosukeSato/bookingrisk/pkg/log"
	"github.com/YuminosukeSato/bookingrisk/serving"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.GetLogger().Error("Invalid configuration", err)
		os.Exit(1)
	}
	if err := log.SetupLogger(cfg.Log.Level, os.Stdout); err != nil {
		log.GetLogger().Error("Invalid log level", err)
		os.Exit(1)
	}
	logger := log.GetLoggerWithName("server")

	predictor, err := serving.LoadPredictor(cfg.Artifact.Path)
	if err != nil {
		logger.Error("Cannot serve without a model", err, log.PathKey, cfg.Artifact.Path)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      serving.NewRouter(predictor),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("Shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", err)
	}
}
