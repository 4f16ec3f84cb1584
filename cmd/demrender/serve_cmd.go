package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/spf13/cobra"

	"dem-terrain-render/internal/applog"
	"dem-terrain-render/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the render service (JSON:API over HTTP)",
	RunE:  runServe,
}

// runServe ports the teacher's main() lifecycle (logger setup, rotate
// trigger, signal-driven graceful shutdown) onto the render service.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, lumberjackLogger := applog.New(applog.Options{
		Directory: cfg.LogDirectory,
		Level:     applog.ParseLevel(cfg.LogLevel),
	})
	logger.Info("dem-terrain-render service starting", "listen_address", cfg.ListenAddress, "catalog_folders", cfg.CatalogFolders)

	godal.RegisterAll()

	http.HandleFunc("POST /v1/render", renderRequestHandler)
	http.HandleFunc("OPTIONS /v1/render", corsOptionsHandler)
	http.HandleFunc("/", unsupportedRequest)

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       120 * time.Second,
		WriteTimeout:      time.Duration(cfg.TimeoutSeconds+60) * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		logger.Info("listening for render requests", "listen_address", cfg.ListenAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server exited", "error", err)
			os.Exit(1)
		}
	}()

	rotateStartYearDay := time.Now().UTC().YearDay()
	rotateTrigger := time.Tick(time.Minute)

	shutdownTrigger := make(chan os.Signal, 1)
	signal.Notify(shutdownTrigger, syscall.SIGINT, syscall.SIGTERM)

foreverLoop:
	for {
		select {
		case <-rotateTrigger:
			currentYearDay := time.Now().UTC().YearDay()
			if currentYearDay != rotateStartYearDay {
				logger.Info("new day detected, rotating log")
				if err := lumberjackLogger.Rotate(); err != nil {
					logger.Error("log rotate failed", "error", err)
				}
				rotateStartYearDay = currentYearDay
				logStatistics(logger)
			}
		case sig := <-shutdownTrigger:
			logger.Info("signal received, shutting down", "signal", sig)
			break foreverLoop
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logStatistics(logger)
	logger.Info("service gracefully shut down")
	return nil
}

func logStatistics(logger *slog.Logger) {
	logger.Info("load statistics", "render_requests", atomic.LoadUint64(&renderRequests))
	atomic.StoreUint64(&renderRequests, 0)
}
