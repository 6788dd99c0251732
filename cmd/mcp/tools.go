package main

import (
	"context"
	"errors"
	"fmt"

	"elevator_dispatch/internal/console"
	"elevator_dispatch/internal/elevator"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/samber/lo"
)

type HallRequestInput struct {
	FromFloor int    `json:"from_floor" jsonschema:"floor the hall call was made from"`
	Direction string `json:"direction" jsonschema:"requested travel direction: up or down"`
}

type CabinRequestInput struct {
	CarID   string `json:"car_id" jsonschema:"id of the car the request was made in"`
	ToFloor int    `json:"to_floor" jsonschema:"destination floor"`
}

type CancelRequestInput struct {
	CarID string `json:"car_id" jsonschema:"id of the car holding the pending stop"`
	Floor int    `json:"floor" jsonschema:"floor of the pending stop to cancel"`
}

type ListCarsInput struct{}

type RouteOutput struct {
	CarID    string `json:"car_id" jsonschema:"car the request was routed to"`
	Admitted bool   `json:"admitted" jsonschema:"false when the car was full and dropped the request"`
}

type CancelOutput struct {
	Found bool `json:"found" jsonschema:"whether a pending stop was removed"`
}

type CarStatus struct {
	ID           string `json:"id"`
	Direction    string `json:"direction"`
	CurrentFloor int    `json:"current_floor"`
	Capacity     int    `json:"capacity"`
	CurrentLoad  int    `json:"current_load"`
	Ascending    []int  `json:"ascending"`
	Descending   []int  `json:"descending"`
}

type ListCarsOutput struct {
	Cars []CarStatus `json:"cars"`
}

type tools struct {
	dispatcher *elevator.Dispatcher
}

func errorResult(format string, a ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, a...)},
		},
	}
}

func textResult(format string, a ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, a...)},
		},
	}
}

func (t *tools) RouteHallRequest(ctx context.Context, req *mcp.CallToolRequest, input HallRequestInput) (*mcp.CallToolResult, RouteOutput, error) {
	dir, err := elevator.ParseDirection(input.Direction)
	if err != nil || dir == elevator.Idle {
		return errorResult("direction must be up or down, got %q", input.Direction), RouteOutput{}, nil
	}

	carID, err := t.dispatcher.RouteHallRequest(input.FromFloor, dir)
	switch {
	case errors.Is(err, elevator.ErrCapacityExceeded):
		return textResult("elevator %s is at capacity, request ignored", carID), RouteOutput{CarID: carID}, nil
	case err != nil:
		return errorResult("hall request failed: %v", err), RouteOutput{}, nil
	}
	return textResult("hall request at floor %d (%s) assigned to %s", input.FromFloor, dir, carID),
		RouteOutput{CarID: carID, Admitted: true}, nil
}

func (t *tools) RouteCabinRequest(ctx context.Context, req *mcp.CallToolRequest, input CabinRequestInput) (*mcp.CallToolResult, RouteOutput, error) {
	err := t.dispatcher.RouteCabinRequest(input.CarID, input.ToFloor)
	switch {
	case errors.Is(err, elevator.ErrCapacityExceeded):
		return textResult("elevator %s is at capacity, request ignored", input.CarID), RouteOutput{CarID: input.CarID}, nil
	case err != nil:
		return errorResult("cabin request failed: %v", err), RouteOutput{}, nil
	}
	return textResult("request for floor %d sent to %s", input.ToFloor, input.CarID),
		RouteOutput{CarID: input.CarID, Admitted: true}, nil
}

func (t *tools) CancelRequest(ctx context.Context, req *mcp.CallToolRequest, input CancelRequestInput) (*mcp.CallToolResult, CancelOutput, error) {
	found, err := t.dispatcher.Cancel(input.CarID, input.Floor)
	if err != nil {
		return errorResult("cancel failed: %v", err), CancelOutput{}, nil
	}
	if !found {
		return textResult("no such request for floor %d found in elevator %s", input.Floor, input.CarID), CancelOutput{}, nil
	}
	return textResult("request for floor %d canceled in elevator %s", input.Floor, input.CarID), CancelOutput{Found: true}, nil
}

func (t *tools) ListCars(ctx context.Context, req *mcp.CallToolRequest, input ListCarsInput) (*mcp.CallToolResult, ListCarsOutput, error) {
	snapshots := t.dispatcher.Snapshots()
	lines := lo.Map(snapshots, func(s elevator.Snapshot, _ int) string {
		return console.FormatSnapshot(s)
	})
	cars := lo.Map(snapshots, func(s elevator.Snapshot, _ int) CarStatus {
		return CarStatus{
			ID:           s.ID,
			Direction:    s.Direction.String(),
			CurrentFloor: s.CurrentFloor,
			Capacity:     s.Capacity,
			CurrentLoad:  s.CurrentLoad,
			Ascending:    lo.Ternary(s.Ascending == nil, []int{}, s.Ascending),
			Descending:   lo.Ternary(s.Descending == nil, []int{}, s.Descending),
		}
	})

	result := &mcp.CallToolResult{}
	for _, line := range lines {
		result.Content = append(result.Content, &mcp.TextContent{Text: line})
	}
	return result, ListCarsOutput{Cars: cars}, nil
}

func newServer(d *elevator.Dispatcher) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "elevator-dispatch",
		Version: "1.0.0",
	}, nil)

	t := &tools{dispatcher: d}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "route_hall_request",
		Description: "Route a hall call to the best car: the nearest car that is idle or already travelling in the requested direction.",
	}, t.RouteHallRequest)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "route_cabin_request",
		Description: "Queue a destination floor in a specific car.",
	}, t.RouteCabinRequest)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "cancel_request",
		Description: "Remove one pending stop for a floor from a car.",
	}, t.CancelRequest)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_cars",
		Description: "Show each car's floor, direction, load and pending stops.",
	}, t.ListCars)

	return server
}
