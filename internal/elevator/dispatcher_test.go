package elevator

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu       sync.Mutex
	admitted []string
	rejected []string
	canceled map[string][]bool
	stops    []int
}

func (r *fakeRecorder) RequestAdmitted(carID string, kind RequestKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admitted = append(r.admitted, carID+"/"+string(kind))
}

func (r *fakeRecorder) RequestRejected(carID string, kind RequestKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, carID+"/"+string(kind))
}

func (r *fakeRecorder) RequestCanceled(carID string, found bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.canceled == nil {
		r.canceled = make(map[string][]bool)
	}
	r.canceled[carID] = append(r.canceled[carID], found)
}

func (r *fakeRecorder) StopServed(_ string, floor int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops = append(r.stops, floor)
}

func movingCar(id string, floor int, dir Direction) *Car {
	car := NewCar(id, 4, WithHomeFloor(floor))
	car.state.Direction = dir
	return car
}

func newTestDispatcher(t *testing.T, cars []*Car, opts ...Option) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(cars, opts...)
	require.NoError(t, err)
	return d
}

func TestNewDispatcherValidatesRoster(t *testing.T) {
	_, err := NewDispatcher(nil)
	require.ErrorIs(t, err, ErrEmptyRoster)

	_, err = NewDispatcher([]*Car{NewCar("A", 4), NewCar("A", 4)})
	require.ErrorIs(t, err, ErrDuplicateCar)

	_, err = NewDispatcher([]*Car{NewCar("A", 4)}, WithStepInterval(0))
	require.Error(t, err)
}

func TestRouteHallRequestTieGoesToRosterOrder(t *testing.T) {
	a := movingCar("A", 2, Idle)
	b := movingCar("B", 8, Up)
	d := newTestDispatcher(t, []*Car{a, b})

	carID, err := d.RouteHallRequest(5, Up)

	require.NoError(t, err)
	assert.Equal(t, "A", carID)
	assert.Equal(t, []int{5}, a.Snapshot().Ascending)
	assert.Equal(t, 0, b.Snapshot().CurrentLoad)
}

func TestRouteHallRequestPicksNearestEligible(t *testing.T) {
	a := movingCar("A", 4, Down)
	b := movingCar("B", 9, Idle)
	c := movingCar("C", 0, Up)
	d := newTestDispatcher(t, []*Car{a, b, c})

	carID, err := d.RouteHallRequest(5, Up)

	require.NoError(t, err)
	assert.Equal(t, "B", carID)
	assert.Equal(t, []int{5}, b.Snapshot().Descending)
}

func TestRouteHallRequestFallsBackToFirstCar(t *testing.T) {
	a := movingCar("A", 10, Down)
	b := movingCar("B", 5, Down)
	d := newTestDispatcher(t, []*Car{a, b})

	carID, err := d.RouteHallRequest(5, Up)

	require.NoError(t, err)
	assert.Equal(t, "A", carID)
	assert.Equal(t, []int{5}, a.Snapshot().Descending)
}

func TestRouteHallRequestRejectsIdleDirection(t *testing.T) {
	d := newTestDispatcher(t, []*Car{NewCar("A", 4)})

	_, err := d.RouteHallRequest(3, Idle)

	require.ErrorIs(t, err, ErrInvalidDirection)
	assert.Equal(t, 0, d.Snapshots()[0].CurrentLoad)
}

func TestRouteHallRequestReportsFullCar(t *testing.T) {
	rec := &fakeRecorder{}
	d := newTestDispatcher(t, []*Car{NewCar("A", 0)}, WithRecorder(rec))

	carID, err := d.RouteHallRequest(3, Down)

	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, "A", carID)
	assert.Equal(t, []string{"A/hall"}, rec.rejected)
	assert.Empty(t, rec.admitted)
}

func TestRouteCabinRequest(t *testing.T) {
	rec := &fakeRecorder{}
	a := NewCar("A", 4)
	b := NewCar("B", 4)
	d := newTestDispatcher(t, []*Car{a, b}, WithRecorder(rec))

	require.NoError(t, d.RouteCabinRequest("B", 7))
	assert.Equal(t, []int{7}, b.Snapshot().Ascending)
	assert.Empty(t, a.Snapshot().Ascending)
	assert.Equal(t, []string{"B/cabin"}, rec.admitted)

	err := d.RouteCabinRequest("Z", 7)
	require.ErrorIs(t, err, ErrUnknownCar)
}

func TestCancel(t *testing.T) {
	rec := &fakeRecorder{}
	d := newTestDispatcher(t, []*Car{NewCar("A", 4)}, WithRecorder(rec))
	require.NoError(t, d.RouteCabinRequest("A", 6))

	found, err := d.Cancel("A", 6)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = d.Cancel("A", 6)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = d.Cancel("Z", 6)
	require.ErrorIs(t, err, ErrUnknownCar)

	assert.Equal(t, []bool{true, false}, rec.canceled["A"])
}

func TestSnapshotsFollowRosterOrder(t *testing.T) {
	d := newTestDispatcher(t, []*Car{NewCar("B", 4), NewCar("A", 4)})

	snaps := d.Snapshots()

	require.Len(t, snaps, 2)
	assert.Equal(t, "B", snaps[0].ID)
	assert.Equal(t, "A", snaps[1].ID)
}

func TestRunAdvancesEachCarOnItsTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	steps := make(chan Step, 16)
	rec := &fakeRecorder{}
	car := NewCar("A", 4)
	d := newTestDispatcher(t, []*Car{car},
		WithClock(clock),
		WithStepInterval(time.Second),
		WithRecorder(rec),
		WithStepHook(func(_ string, step Step) { steps <- step }))
	for _, floor := range []int{3, 5, 9} {
		require.NoError(t, car.Admit(floor))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	var visited []int
	for i := 0; i < 3; i++ {
		if i > 0 {
			require.NoError(t, clock.BlockUntilContext(ctx, 1))
			clock.Advance(time.Second)
		}
		select {
		case step := <-steps:
			visited = append(visited, step.Floor)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for step")
		}
	}

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not stop")
	}

	assert.Equal(t, []int{3, 5, 9}, visited)
	assert.Equal(t, []int{3, 5, 9}, rec.stops)
	assert.Equal(t, Idle, car.Snapshot().Direction)
}

func TestRunStopsAllWorkers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := newTestDispatcher(t, []*Car{NewCar("A", 4), NewCar("B", 4), NewCar("C", 4)}, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 3))
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not stop")
	}
}

func assertConsistent(t *testing.T, snap Snapshot) {
	t.Helper()
	assert.GreaterOrEqual(t, snap.CurrentLoad, 0, snap.ID)
	assert.LessOrEqual(t, snap.CurrentLoad, snap.Capacity, snap.ID)
	assert.True(t, sort.IntsAreSorted(snap.Ascending), "%s ascending %v", snap.ID, snap.Ascending)
	assert.True(t, sort.IsSorted(sort.Reverse(sort.IntSlice(snap.Descending))), "%s descending %v", snap.ID, snap.Descending)
}

func TestRequestsWhileRunning(t *testing.T) {
	cars := []*Car{NewCar("A", 4), NewCar("B", 3), NewCar("C", 5)}
	d := newTestDispatcher(t, cars, WithStepInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	const workers = 8
	const perWorker = 300
	ids := []string{"A", "B", "C"}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for i := 0; i < perWorker; i++ {
				floor := rnd.Intn(20)
				id := ids[rnd.Intn(len(ids))]
				var err error
				switch rnd.Intn(4) {
				case 0:
					dir := Up
					if rnd.Intn(2) == 0 {
						dir = Down
					}
					_, err = d.RouteHallRequest(floor, dir)
				case 1:
					err = d.RouteCabinRequest(id, floor)
				case 2:
					_, err = d.Cancel(id, floor)
				default:
					for _, snap := range d.Snapshots() {
						assertConsistent(t, snap)
					}
				}
				if err != nil && !errors.Is(err, ErrCapacityExceeded) {
					assert.NoError(t, err)
				}
			}
		}(int64(w))
	}
	wg.Wait()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not stop")
	}

	for _, snap := range d.Snapshots() {
		assertConsistent(t, snap)
	}
}
