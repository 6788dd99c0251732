package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sync"
	"time"

	"elevator_dispatch/internal/config"
	"elevator_dispatch/internal/console"
	"elevator_dispatch/internal/elevator"
	"elevator_dispatch/internal/logging"

	"github.com/google/uuid"
)

type options struct {
	floors   int
	cars     int
	capacity int
	requests int
	rate     time.Duration
	step     time.Duration
	duration time.Duration
}

func (o options) validate() error {
	var errs []error
	if o.floors <= 0 {
		errs = append(errs, fmt.Errorf("floors must be positive, got %d", o.floors))
	}
	if o.cars <= 0 {
		errs = append(errs, fmt.Errorf("cars must be positive, got %d", o.cars))
	}
	if o.capacity < 0 {
		errs = append(errs, fmt.Errorf("capacity must not be negative, got %d", o.capacity))
	}
	if o.requests < 0 {
		errs = append(errs, fmt.Errorf("requests must not be negative, got %d", o.requests))
	}
	if o.rate <= 0 {
		errs = append(errs, fmt.Errorf("rate must be positive, got %s", o.rate))
	}
	if o.step <= 0 {
		errs = append(errs, fmt.Errorf("step must be positive, got %s", o.step))
	}
	if o.duration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be positive, got %s", o.duration))
	}
	return errors.Join(errs...)
}

type simulation struct {
	floors   int
	cars     []string
	requests int
	rate     time.Duration
	rand     *rand.Rand
}

// generate sends random hall and cabin requests until the quota is reached
// or ctx is done. It returns how many requests were dropped by full cars.
func (s *simulation) generate(ctx context.Context, d *elevator.Dispatcher) int {
	dropped := 0
	ticker := time.NewTicker(s.rate)
	defer ticker.Stop()

	for i := 0; i < s.requests; i++ {
		floor := s.rand.Intn(s.floors)

		var err error
		if s.rand.Intn(2) == 0 {
			dir := elevator.Up
			if s.rand.Intn(2) == 0 {
				dir = elevator.Down
			}
			_, err = d.RouteHallRequest(floor, dir)
		} else {
			err = d.RouteCabinRequest(s.cars[s.rand.Intn(len(s.cars))], floor)
		}
		if err != nil {
			dropped++
		}

		select {
		case <-ctx.Done():
			return dropped
		case <-ticker.C:
		}
	}
	return dropped
}

func main() {
	var opts options
	flag.IntVar(&opts.floors, "floors", 10, "Number of floors in the building")
	flag.IntVar(&opts.cars, "cars", 2, "Number of cars")
	flag.IntVar(&opts.capacity, "capacity", 4, "Capacity of each car")
	flag.IntVar(&opts.requests, "requests", 200, "Number of random requests to generate")
	flag.DurationVar(&opts.rate, "rate", 50*time.Millisecond, "Delay between generated requests")
	flag.DurationVar(&opts.step, "step", 100*time.Millisecond, "Car step interval")
	flag.DurationVar(&opts.duration, "duration", 30*time.Second, "Maximum simulation time")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	cfg := config.Default()
	cfg.LoggingLevel = os.Getenv("LOG_LEVEL")
	logFile, err := logging.Setup(cfg)
	if err != nil {
		slog.Error("failed to setup logger", slog.Any("error", err))
		os.Exit(1)
	}
	defer logFile.Close()

	if err := opts.validate(); err != nil {
		slog.Error("invalid flags", slog.Any("error", err))
		os.Exit(1)
	}

	sim := &simulation{
		floors:   opts.floors,
		requests: opts.requests,
		rate:     opts.rate,
		rand:     rand.New(rand.NewSource(*seed)),
	}
	cfg.Cars = nil
	for i := 1; i <= opts.cars; i++ {
		id := fmt.Sprintf("Elevator%d", i)
		cfg.Cars = append(cfg.Cars, config.CarConfig{ID: id, Capacity: opts.capacity})
		sim.cars = append(sim.cars, id)
	}

	dispatcher, err := elevator.NewDispatcher(cfg.BuildCars(), elevator.WithStepInterval(opts.step))
	if err != nil {
		slog.Error("failed to create dispatcher", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.duration)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()

	logger := slog.With(slog.String("run_id", uuid.NewString()))
	logger.Info("simulation started",
		slog.Int64("seed", *seed),
		slog.Int("cars", opts.cars),
		slog.Int("floors", opts.floors))
	dropped := sim.generate(ctx, dispatcher)
	cancel()
	wg.Wait()

	logger.Info("simulation finished", slog.Int("requests", opts.requests), slog.Int("dropped", dropped))
	for _, snap := range dispatcher.Snapshots() {
		fmt.Println(console.FormatSnapshot(snap))
	}
}
