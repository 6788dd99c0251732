package elevator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
)

const DefaultStepInterval = time.Second

type RequestKind string

const (
	HallRequest  RequestKind = "hall"
	CabinRequest RequestKind = "cabin"
)

// Recorder receives dispatch events, typically to export them as metrics.
type Recorder interface {
	RequestAdmitted(carID string, kind RequestKind)
	RequestRejected(carID string, kind RequestKind)
	RequestCanceled(carID string, found bool)
	StopServed(carID string, floor int)
}

type nopRecorder struct{}

func (nopRecorder) RequestAdmitted(string, RequestKind) {}
func (nopRecorder) RequestRejected(string, RequestKind) {}
func (nopRecorder) RequestCanceled(string, bool)        {}
func (nopRecorder) StopServed(string, int)              {}

// StepHook is called from a car's worker after every step.
type StepHook func(carID string, step Step)

// Dispatcher routes requests to a fixed roster of cars and drives one
// advancement worker per car. The roster is read-only after construction.
type Dispatcher struct {
	cars     []*Car
	byID     map[string]*Car
	clock    clockwork.Clock
	interval time.Duration
	logger   *slog.Logger
	recorder Recorder
	onStep   StepHook
}

type Option func(*Dispatcher)

func WithClock(clock clockwork.Clock) Option {
	return func(d *Dispatcher) {
		d.clock = clock
	}
}

func WithStepInterval(interval time.Duration) Option {
	return func(d *Dispatcher) {
		d.interval = interval
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithRecorder(recorder Recorder) Option {
	return func(d *Dispatcher) {
		d.recorder = recorder
	}
}

func WithStepHook(hook StepHook) Option {
	return func(d *Dispatcher) {
		d.onStep = hook
	}
}

func NewDispatcher(cars []*Car, opts ...Option) (*Dispatcher, error) {
	if len(cars) == 0 {
		return nil, ErrEmptyRoster
	}
	if dups := lo.FindDuplicatesBy(cars, (*Car).ID); len(dups) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCar, dups[0].ID())
	}

	d := &Dispatcher{
		cars:     cars,
		byID:     lo.KeyBy(cars, (*Car).ID),
		clock:    clockwork.NewRealClock(),
		interval: DefaultStepInterval,
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.interval <= 0 {
		return nil, fmt.Errorf("step interval must be positive, got %s", d.interval)
	}
	return d, nil
}

// RouteHallRequest assigns a hall call to the nearest car that is idle or
// already travelling in dir. Ties go to the earlier car in the roster; when
// no car qualifies the first car takes the request. The chosen car id is
// returned even if the car turns the request away.
func (d *Dispatcher) RouteHallRequest(fromFloor int, dir Direction) (string, error) {
	if dir != Up && dir != Down {
		return "", fmt.Errorf("%w: hall request must be UP or DOWN, got %s", ErrInvalidDirection, dir)
	}

	car := d.selectCar(fromFloor, dir)
	logger := d.requestLogger(car)
	logger.Info("hall request assigned",
		slog.Int("from_floor", fromFloor),
		slog.String("direction", dir.String()))

	return car.ID(), d.admit(car, fromFloor, HallRequest, logger)
}

func (d *Dispatcher) RouteCabinRequest(carID string, toFloor int) error {
	car, err := d.Car(carID)
	if err != nil {
		return err
	}

	logger := d.requestLogger(car)
	logger.Info("cabin request received", slog.Int("to_floor", toFloor))

	return d.admit(car, toFloor, CabinRequest, logger)
}

func (d *Dispatcher) Cancel(carID string, floor int) (bool, error) {
	car, err := d.Car(carID)
	if err != nil {
		return false, err
	}

	found := car.Cancel(floor)
	d.recorder.RequestCanceled(carID, found)
	return found, nil
}

func (d *Dispatcher) Car(id string) (*Car, error) {
	car, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCar, id)
	}
	return car, nil
}

func (d *Dispatcher) Snapshots() []Snapshot {
	return lo.Map(d.cars, func(c *Car, _ int) Snapshot {
		return c.Snapshot()
	})
}

// Run starts one worker per car and blocks until ctx is done and every
// worker has returned.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("starting car workers",
		slog.Int("cars", len(d.cars)),
		slog.Duration("step_interval", d.interval))

	var wg sync.WaitGroup
	for _, car := range d.cars {
		wg.Add(1)
		go func(c *Car) {
			defer wg.Done()
			d.runCar(ctx, c)
		}(car)
	}
	wg.Wait()

	d.logger.Info("car workers stopped")
	return ctx.Err()
}

func (d *Dispatcher) runCar(ctx context.Context, car *Car) {
	logger := d.logger.With(slog.String("car", car.ID()))
	ticker := d.clock.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		d.step(car, logger)

		select {
		case <-ctx.Done():
			logger.Debug("worker stopping")
			return
		case <-ticker.Chan():
		}
	}
}

func (d *Dispatcher) step(car *Car, logger *slog.Logger) {
	step := car.Advance()
	switch step.Kind {
	case StepMoved:
		logger.Info("car moved", slog.Int("floor", step.Floor))
		d.recorder.StopServed(car.ID(), step.Floor)
	case StepReversed:
		logger.Debug("car reversed", slog.String("direction", step.Direction.String()))
	case StepIdled:
		logger.Debug("car idle", slog.Int("floor", step.Floor))
	}

	if d.onStep != nil {
		d.onStep(car.ID(), step)
	}
}

func (d *Dispatcher) selectCar(fromFloor int, dir Direction) *Car {
	var best *Car
	minDistance := math.MaxInt
	for _, car := range d.cars {
		carDir, floor := car.position()
		if carDir != Idle && carDir != dir {
			continue
		}
		if distance := abs(floor - fromFloor); distance < minDistance {
			best = car
			minDistance = distance
		}
	}

	if best == nil {
		return d.cars[0]
	}
	return best
}

func (d *Dispatcher) admit(car *Car, floor int, kind RequestKind, logger *slog.Logger) error {
	if err := car.Admit(floor); err != nil {
		d.recorder.RequestRejected(car.ID(), kind)
		logger.Warn("request dropped", slog.Int("floor", floor), slog.Any("error", err))
		return err
	}
	d.recorder.RequestAdmitted(car.ID(), kind)
	return nil
}

func (d *Dispatcher) requestLogger(car *Car) *slog.Logger {
	return d.logger.With(
		slog.String("request_id", uuid.NewString()),
		slog.String("car", car.ID()))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
