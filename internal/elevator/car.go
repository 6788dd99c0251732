package elevator

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/tiendc/go-deepcopy"
)

// Snapshot is a point-in-time copy of a car's state.
type Snapshot struct {
	ID           string    `json:"id"`
	Direction    Direction `json:"direction"`
	CurrentFloor int       `json:"current_floor"`
	Capacity     int       `json:"capacity"`
	CurrentLoad  int       `json:"current_load"`
	Ascending    []int     `json:"ascending"`
	Descending   []int     `json:"descending"`
}

// Car is a single elevator car. All methods are safe for concurrent use;
// admissions, cancellations and steps on the same car are serialized.
type Car struct {
	mu     sync.Mutex
	state  Snapshot
	logger *slog.Logger
}

type CarOption func(*Car)

func WithHomeFloor(floor int) CarOption {
	return func(c *Car) {
		c.state.CurrentFloor = floor
	}
}

func WithCarLogger(logger *slog.Logger) CarOption {
	return func(c *Car) {
		c.logger = logger
	}
}

// NewCar panics if id is empty or capacity is negative.
func NewCar(id string, capacity int, opts ...CarOption) *Car {
	if id == "" {
		panic("elevator: car id must not be empty")
	}
	if capacity < 0 {
		panic(fmt.Sprintf("elevator: car %s has negative capacity %d", id, capacity))
	}

	c := &Car{
		state: Snapshot{
			ID:        id,
			Direction: Idle,
			Capacity:  capacity,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("car", id))
	return c
}

func (c *Car) ID() string {
	return c.state.ID
}

// Admit queues floor in the sweep that will reach it. A floor equal to the
// current floor is not queued but still counts as a boarding passenger.
func (c *Car) Admit(floor int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.state
	if s.CurrentLoad >= s.Capacity {
		c.logger.Warn("car is at capacity, request ignored",
			slog.Int("floor", floor),
			slog.Int("load", s.CurrentLoad),
			slog.Int("capacity", s.Capacity))
		return fmt.Errorf("car %s: %w", s.ID, ErrCapacityExceeded)
	}

	switch {
	case floor > s.CurrentFloor:
		s.Ascending = insertAscending(s.Ascending, floor)
	case floor < s.CurrentFloor:
		s.Descending = insertDescending(s.Descending, floor)
	}
	s.CurrentLoad++

	c.logger.Debug("request admitted",
		slog.Int("floor", floor),
		slog.Int("load", s.CurrentLoad))
	return nil
}

// Advance executes at most one stop.
func (c *Car) Advance() Step {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.state
	if s.Direction == Idle {
		switch {
		case len(s.Ascending) > 0:
			s.Direction = Up
		case len(s.Descending) > 0:
			s.Direction = Down
		default:
			return Step{Kind: StepNone, Floor: s.CurrentFloor, Direction: Idle}
		}
	}

	queue := c.queue(s.Direction)
	if len(*queue) > 0 {
		s.CurrentFloor = (*queue)[0]
		*queue = slices.Delete(*queue, 0, 1)
		s.CurrentLoad = max(0, s.CurrentLoad-1)
		if len(s.Ascending) == 0 && len(s.Descending) == 0 {
			s.Direction = Idle
		}
		return Step{Kind: StepMoved, Floor: s.CurrentFloor, Direction: s.Direction}
	}

	if len(*c.queue(s.Direction.Opposite())) > 0 {
		s.Direction = s.Direction.Opposite()
		return Step{Kind: StepReversed, Floor: s.CurrentFloor, Direction: s.Direction}
	}

	s.Direction = Idle
	return Step{Kind: StepIdled, Floor: s.CurrentFloor, Direction: Idle}
}

// Cancel removes one pending stop for floor, checking the ascending queue
// first. It reports whether a stop was removed.
func (c *Car) Cancel(floor int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.state
	for _, d := range []Direction{Up, Down} {
		queue := c.queue(d)
		i := slices.Index(*queue, floor)
		if i < 0 {
			continue
		}
		*queue = slices.Delete(*queue, i, i+1)
		s.CurrentLoad = max(0, s.CurrentLoad-1)
		c.logger.Info("request canceled", slog.Int("floor", floor))
		return true
	}

	c.logger.Info("no such request", slog.Int("floor", floor))
	return false
}

func (c *Car) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out Snapshot
	if err := deepcopy.Copy(&out, &c.state); err != nil {
		panic(err)
	}
	return out
}

func (c *Car) position() (Direction, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Direction, c.state.CurrentFloor
}

func (c *Car) queue(d Direction) *[]int {
	if d == Down {
		return &c.state.Descending
	}
	return &c.state.Ascending
}

func insertAscending(queue []int, floor int) []int {
	i := sort.SearchInts(queue, floor+1)
	return slices.Insert(queue, i, floor)
}

func insertDescending(queue []int, floor int) []int {
	i := sort.Search(len(queue), func(i int) bool { return queue[i] < floor })
	return slices.Insert(queue, i, floor)
}
