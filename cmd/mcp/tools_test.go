package main

import (
	"context"
	"testing"

	"elevator_dispatch/internal/elevator"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTools(t *testing.T) *tools {
	t.Helper()
	d, err := elevator.NewDispatcher([]*elevator.Car{
		elevator.NewCar("Elevator1", 1),
		elevator.NewCar("Elevator2", 4),
	})
	require.NoError(t, err)
	return &tools{dispatcher: d}
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestRouteHallRequestTool(t *testing.T) {
	tl := newTools(t)
	ctx := context.Background()

	result, out, err := tl.RouteHallRequest(ctx, nil, HallRequestInput{FromFloor: 4, Direction: "up"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, RouteOutput{CarID: "Elevator1", Admitted: true}, out)

	result, out, err = tl.RouteHallRequest(ctx, nil, HallRequestInput{FromFloor: 2, Direction: "UP"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, RouteOutput{CarID: "Elevator1"}, out)
	assert.Contains(t, text(t, result), "at capacity")

	result, _, err = tl.RouteHallRequest(ctx, nil, HallRequestInput{FromFloor: 2, Direction: "idle"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestRouteCabinRequestTool(t *testing.T) {
	tl := newTools(t)
	ctx := context.Background()

	result, out, err := tl.RouteCabinRequest(ctx, nil, CabinRequestInput{CarID: "Elevator2", ToFloor: 6})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.True(t, out.Admitted)

	result, _, err = tl.RouteCabinRequest(ctx, nil, CabinRequestInput{CarID: "Elevator9", ToFloor: 6})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "no such elevator")
}

func TestCancelRequestTool(t *testing.T) {
	tl := newTools(t)
	ctx := context.Background()
	require.NoError(t, tl.dispatcher.RouteCabinRequest("Elevator2", 6))

	_, out, err := tl.CancelRequest(ctx, nil, CancelRequestInput{CarID: "Elevator2", Floor: 6})
	require.NoError(t, err)
	assert.True(t, out.Found)

	result, out, err := tl.CancelRequest(ctx, nil, CancelRequestInput{CarID: "Elevator2", Floor: 6})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.False(t, out.Found)
}

func TestListCarsTool(t *testing.T) {
	tl := newTools(t)
	require.NoError(t, tl.dispatcher.RouteCabinRequest("Elevator2", 6))

	result, out, err := tl.ListCars(context.Background(), nil, ListCarsInput{})

	require.NoError(t, err)
	require.Len(t, out.Cars, 2)
	assert.Equal(t, CarStatus{
		ID:          "Elevator2",
		Direction:   "IDLE",
		Capacity:    4,
		CurrentLoad: 1,
		Ascending:   []int{6},
		Descending:  []int{},
	}, out.Cars[1])
	assert.Len(t, result.Content, 2)
}

func TestNewServerRegistersTools(t *testing.T) {
	require.NotNil(t, newServer(newTools(t).dispatcher))
}
