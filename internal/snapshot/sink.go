package snapshot

import (
	"context"
	"log/slog"

	"elevator_dispatch/internal/elevator"
)

// Sink receives the state of every car on each publication.
type Sink interface {
	Name() string
	Publish(ctx context.Context, snapshots []elevator.Snapshot) error
	Close(ctx context.Context) error
}

type Source interface {
	Snapshots() []elevator.Snapshot
}

type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Publish(ctx context.Context, snapshots []elevator.Snapshot) error {
	for _, snap := range snapshots {
		s.logger.InfoContext(ctx, "car state",
			slog.String("car", snap.ID),
			slog.String("direction", snap.Direction.String()),
			slog.Int("floor", snap.CurrentFloor),
			slog.Int("load", snap.CurrentLoad),
			slog.Int("capacity", snap.Capacity),
			slog.Any("ascending", snap.Ascending),
			slog.Any("descending", snap.Descending))
	}
	return nil
}

func (s *LogSink) Close(context.Context) error { return nil }
