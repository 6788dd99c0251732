package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"elevator_dispatch/internal/config"
	"elevator_dispatch/internal/elevator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

const MeterName = "elevator_dispatch"

const (
	OutcomeAdmitted = "admitted"
	OutcomeRejected = "rejected"
)

type setupOptions struct {
	otlpEndpoint   string
	otlpPath       string
	exportInterval time.Duration
}

type Option func(*setupOptions)

// WithOTLPExporter pushes metrics over OTLP/HTTP to endpoint (host:port)
// every interval, alongside the Prometheus registry.
func WithOTLPExporter(endpoint, path string, interval time.Duration) Option {
	return func(o *setupOptions) {
		o.otlpEndpoint = endpoint
		o.otlpPath = path
		o.exportInterval = interval
	}
}

// FromConfig translates the metrics section of the configuration into options.
func FromConfig(cfg config.MetricsConfig) []Option {
	if cfg.OTLPEndpoint == "" {
		return nil
	}
	return []Option{WithOTLPExporter(cfg.OTLPEndpoint, cfg.OTLPPath, cfg.ExportInterval())}
}

// Setup builds a meter provider backed by a Prometheus registry and returns
// the HTTP handler that serves it.
func Setup(ctx context.Context, serviceName string, opts ...Option) (*sdkmetric.MeterProvider, http.Handler, error) {
	var options setupOptions
	for _, opt := range opts {
		opt(&options)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	providerOpts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	}

	if options.otlpEndpoint != "" {
		slog.Debug("creating OTLP metric exporter",
			slog.String("endpoint", options.otlpEndpoint),
			slog.String("path", options.otlpPath),
			slog.Duration("export_interval", options.exportInterval))

		httpOpts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(options.otlpEndpoint),
			otlpmetrichttp.WithInsecure(),
		}
		if options.otlpPath != "" {
			httpOpts = append(httpOpts, otlpmetrichttp.WithURLPath(options.otlpPath))
		}
		otlpExporter, err := otlpmetrichttp.New(ctx, httpOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}

		var readerOpts []sdkmetric.PeriodicReaderOption
		if options.exportInterval > 0 {
			readerOpts = append(readerOpts, sdkmetric.WithInterval(options.exportInterval))
		}
		providerOpts = append(providerOpts,
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(otlpExporter, readerOpts...)))
	}

	provider := sdkmetric.NewMeterProvider(providerOpts...)
	return provider, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

// Serve exposes handler on addr under /metrics in the background.
func Serve(addr string, handler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("serving metrics", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	return server
}

// Recorder exports dispatcher events as OpenTelemetry counters.
type Recorder struct {
	requests      metric.Int64Counter
	cancellations metric.Int64Counter
	stops         metric.Int64Counter
}

var _ elevator.Recorder = (*Recorder)(nil)

func NewRecorder(meter metric.Meter) (*Recorder, error) {
	requests, err := meter.Int64Counter("elevator.requests",
		metric.WithDescription("Floor requests routed to a car, by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create requests counter: %w", err)
	}

	cancellations, err := meter.Int64Counter("elevator.cancellations",
		metric.WithDescription("Cancellation attempts, by whether a pending stop was found"))
	if err != nil {
		return nil, fmt.Errorf("failed to create cancellations counter: %w", err)
	}

	stops, err := meter.Int64Counter("elevator.stops",
		metric.WithDescription("Stops served by a car"))
	if err != nil {
		return nil, fmt.Errorf("failed to create stops counter: %w", err)
	}

	return &Recorder{
		requests:      requests,
		cancellations: cancellations,
		stops:         stops,
	}, nil
}

func (r *Recorder) RequestAdmitted(carID string, kind elevator.RequestKind) {
	r.recordRequest(carID, kind, OutcomeAdmitted)
}

func (r *Recorder) RequestRejected(carID string, kind elevator.RequestKind) {
	r.recordRequest(carID, kind, OutcomeRejected)
}

func (r *Recorder) RequestCanceled(carID string, found bool) {
	r.cancellations.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("car", carID),
		attribute.Bool("found", found),
	))
}

func (r *Recorder) StopServed(carID string, _ int) {
	r.stops.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("car", carID),
	))
}

func (r *Recorder) recordRequest(carID string, kind elevator.RequestKind, outcome string) {
	r.requests.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("car", carID),
		attribute.String("kind", string(kind)),
		attribute.String("outcome", outcome),
	))
}
