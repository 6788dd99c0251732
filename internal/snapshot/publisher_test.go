package snapshot

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"elevator_dispatch/internal/elevator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource []elevator.Snapshot

func (s staticSource) Snapshots() []elevator.Snapshot { return s }

type memorySink struct {
	name string
	err  error

	mu      sync.Mutex
	batches [][]elevator.Snapshot
	closed  bool
}

func (s *memorySink) Name() string { return s.name }

func (s *memorySink) Publish(_ context.Context, snapshots []elevator.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, snapshots)
	return s.err
}

func (s *memorySink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

var testSnapshots = staticSource{
	{ID: "A", Direction: elevator.Up, CurrentFloor: 3, Capacity: 4, CurrentLoad: 1, Ascending: []int{7}},
}

func TestPublishNowContinuesPastFailingSink(t *testing.T) {
	failing := &memorySink{name: "broken", err: errors.New("connection refused")}
	healthy := &memorySink{name: "memory"}
	p, err := NewPublisher(testSnapshots, []Sink{failing, healthy}, time.Hour)
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	err = p.PublishNow(context.Background())

	require.ErrorContains(t, err, "broken: connection refused")
	require.Equal(t, 1, healthy.count())
	assert.Equal(t, []elevator.Snapshot(testSnapshots), healthy.batches[0])
}

func TestPublisherRunsOnSchedule(t *testing.T) {
	sink := &memorySink{name: "memory"}
	p, err := NewPublisher(testSnapshots, []Sink{sink}, 20*time.Millisecond)
	require.NoError(t, err)

	p.Start()
	require.Eventually(t, func() bool { return sink.count() >= 2 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Shutdown(context.Background()))
	assert.True(t, sink.closed)
}

func TestNewPublisherRejectsNonPositiveInterval(t *testing.T) {
	_, err := NewPublisher(testSnapshots, nil, 0)
	require.Error(t, err)
}

func TestLogSinkWritesEachCar(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, sink.Publish(context.Background(), testSnapshots))

	assert.Contains(t, buf.String(), "car=A direction=UP floor=3 load=1 capacity=4")
}

func TestCarDocumentNormalizesQueues(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	doc := newCarDocument(elevator.Snapshot{ID: "A", Direction: elevator.Down, CurrentFloor: 6}, now)

	assert.Equal(t, carDocument{
		ID:           "A",
		Direction:    "DOWN",
		CurrentFloor: 6,
		Ascending:    []int{},
		Descending:   []int{},
		UpdatedAt:    now,
	}, doc)
}
