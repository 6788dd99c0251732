package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elevator_dispatch/internal/config"
	"elevator_dispatch/internal/elevator"
	"elevator_dispatch/internal/logging"
	"elevator_dispatch/internal/metrics"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	configPath := flag.String("config", "", "Path to the configuration file (defaults to two 4-person cars)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			slog.Error("error loading config", slog.Any("error", err))
			os.Exit(1)
		}
		cfg = loaded
	}

	// stdout carries the MCP stream.
	logFile, err := logging.SetupWriter(cfg, os.Stderr)
	if err != nil {
		slog.Error("failed to setup logger", slog.Any("error", err))
		os.Exit(1)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, metricsHandler, err := metrics.Setup(ctx, "elevator-dispatch-mcp", metrics.FromConfig(cfg.Metrics)...)
	if err != nil {
		slog.Error("failed to setup metrics", slog.Any("error", err))
		os.Exit(1)
	}
	recorder, err := metrics.NewRecorder(provider.Meter(metrics.MeterName))
	if err != nil {
		slog.Error("failed to create metrics recorder", slog.Any("error", err))
		os.Exit(1)
	}

	dispatcher, err := elevator.NewDispatcher(cfg.BuildCars(),
		elevator.WithStepInterval(cfg.StepInterval()),
		elevator.WithRecorder(recorder))
	if err != nil {
		slog.Error("failed to create dispatcher", slog.Any("error", err))
		os.Exit(1)
	}

	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		metricsServer = metrics.Serve(cfg.Metrics.Addr, metricsHandler)
	}

	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		dispatcher.Run(ctx)
	}()

	if err := newServer(dispatcher).Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		slog.Error("server failed", slog.Any("error", err))
	}
	stop()
	<-workersDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown metrics server", slog.Any("error", err))
		}
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown meter provider", slog.Any("error", err))
	}
}
