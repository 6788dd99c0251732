package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

const jobName = "car-snapshots"

// Publisher periodically pushes the current car states to every sink. A
// sink that fails is logged and skipped; the others still receive the batch.
type Publisher struct {
	source    Source
	sinks     []Sink
	scheduler gocron.Scheduler
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type PublisherOption func(*publisherOptions)

type publisherOptions struct {
	clock  clockwork.Clock
	logger *slog.Logger
}

func WithClock(clock clockwork.Clock) PublisherOption {
	return func(o *publisherOptions) {
		o.clock = clock
	}
}

func WithLogger(logger *slog.Logger) PublisherOption {
	return func(o *publisherOptions) {
		o.logger = logger
	}
}

func NewPublisher(source Source, sinks []Sink, interval time.Duration, opts ...PublisherOption) (*Publisher, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("snapshot interval must be positive, got %s", interval)
	}

	o := publisherOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	var schedulerOpts []gocron.SchedulerOption
	if o.clock != nil {
		schedulerOpts = append(schedulerOpts, gocron.WithClock(o.clock))
	}
	scheduler, err := gocron.NewScheduler(schedulerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Publisher{
		source:    source,
		sinks:     sinks,
		scheduler: scheduler,
		logger:    o.logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			p.PublishNow(p.ctx)
		}),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		scheduler.Shutdown()
		return nil, fmt.Errorf("failed to schedule snapshot job: %w", err)
	}

	return p, nil
}

func (p *Publisher) Start() {
	p.logger.Info("snapshot publisher started", slog.Int("sinks", len(p.sinks)))
	p.scheduler.Start()
}

// PublishNow sends one batch to every sink and returns the joined sink
// errors.
func (p *Publisher) PublishNow(ctx context.Context) error {
	snapshots := p.source.Snapshots()

	var errs []error
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, snapshots); err != nil {
			p.logger.Error("failed to publish snapshots",
				slog.String("sink", sink.Name()),
				slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown stops the schedule, waits for a running publication and closes
// every sink.
func (p *Publisher) Shutdown(ctx context.Context) error {
	p.cancel()
	errs := []error{p.scheduler.Shutdown()}
	for _, sink := range p.sinks {
		if err := sink.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}
