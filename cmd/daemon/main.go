package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elevator_dispatch/internal/config"
	"elevator_dispatch/internal/console"
	"elevator_dispatch/internal/elevator"
	"elevator_dispatch/internal/logging"
	"elevator_dispatch/internal/metrics"
	"elevator_dispatch/internal/snapshot"
)

const shutdownTimeout = 10 * time.Second

func buildSinks(ctx context.Context, cfg *config.Config) ([]snapshot.Sink, error) {
	sinks := []snapshot.Sink{snapshot.NewLogSink(slog.Default())}

	if cfg.Snapshot.Postgres.Enabled {
		sink, err := snapshot.NewPostgresSink(ctx, cfg.Snapshot.Postgres.DSN())
		if err != nil {
			return nil, err
		}
		slog.Info("publishing snapshots to postgres", slog.String("host", cfg.Snapshot.Postgres.Host))
		sinks = append(sinks, sink)
	}

	if cfg.Snapshot.Mongo.Enabled {
		mongoCfg := cfg.Snapshot.Mongo
		sink, err := snapshot.NewMongoSink(ctx, mongoCfg.URI, mongoCfg.Database, mongoCfg.Collection)
		if err != nil {
			return nil, err
		}
		slog.Info("publishing snapshots to mongo",
			slog.String("database", mongoCfg.Database),
			slog.String("collection", mongoCfg.Collection))
		sinks = append(sinks, sink)
	}

	return sinks, nil
}

func main() {
	configPath := flag.String("config", "", "Path to the configuration file (defaults to two 4-person cars)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags]\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Reads operator commands from stdin. The exit command or SIGINT/SIGTERM stops the daemon;")
		fmt.Fprintln(flag.CommandLine.Output(), "end of stdin only closes the console.")
		flag.PrintDefaults()
	}
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

	logFile, err := logging.Setup(cfg)
	if err != nil {
		slog.Error("failed to setup logger", slog.Any("error", err))
		os.Exit(1)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, metricsHandler, err := metrics.Setup(ctx, "elevator-dispatch", metrics.FromConfig(cfg.Metrics)...)
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

	sinks, err := buildSinks(ctx, cfg)
	if err != nil {
		slog.Error("failed to setup snapshot sinks", slog.Any("error", err))
		os.Exit(1)
	}
	publisher, err := snapshot.NewPublisher(dispatcher, sinks, cfg.Snapshot.Interval())
	if err != nil {
		slog.Error("failed to create snapshot publisher", slog.Any("error", err))
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
	publisher.Start()

	slog.Info("elevator dispatch started", slog.Int("cars", len(cfg.Cars)))

	go func() {
		err := console.Run(ctx, os.Stdin, os.Stdout, dispatcher)
		switch {
		case errors.Is(err, console.ErrInputClosed):
			slog.Info("console input closed, running until signal")
			return
		case err != nil && !errors.Is(err, context.Canceled):
			slog.Error("console failed", slog.Any("error", err))
		}
		stop()
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	<-workersDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := publisher.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown snapshot publisher", slog.Any("error", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown metrics server", slog.Any("error", err))
		}
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown meter provider", slog.Any("error", err))
	}

	fmt.Println("Simulation finished!")
}
