package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"elevator_dispatch/internal/elevator"
)

type CommandKind int

const (
	HallCommand CommandKind = iota + 1
	CabinCommand
	CancelCommand
	ExitCommand
	StatusCommand
)

var commandsByToken = map[string]CommandKind{
	"1":      HallCommand,
	"2":      CabinCommand,
	"3":      CancelCommand,
	"4":      ExitCommand,
	"exit":   ExitCommand,
	"status": StatusCommand,
}

var argCounts = map[CommandKind]int{
	HallCommand:   2,
	CabinCommand:  2,
	CancelCommand: 2,
	ExitCommand:   0,
	StatusCommand: 0,
}

var ErrInvalidChoice = errors.New("invalid choice")

type Command struct {
	Kind      CommandKind
	CarID     string
	Floor     int
	Direction elevator.Direction
}

// Parse reads one console line:
//
//	1 <fromFloor> <up|down>
//	2 <carId> <toFloor>
//	3 <carId> <floor>
//	4 | exit
//	status
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrInvalidChoice
	}

	kind, ok := commandsByToken[strings.ToLower(fields[0])]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrInvalidChoice, fields[0])
	}
	args := fields[1:]
	if want := argCounts[kind]; len(args) != want {
		return Command{}, fmt.Errorf("command %s takes %d arguments, got %d", fields[0], want, len(args))
	}

	cmd := Command{Kind: kind}
	switch kind {
	case HallCommand:
		floor, err := parseFloor(args[0])
		if err != nil {
			return Command{}, err
		}
		dir, err := elevator.ParseDirection(args[1])
		if err != nil || dir == elevator.Idle {
			return Command{}, fmt.Errorf("direction must be up or down, got %q", args[1])
		}
		cmd.Floor = floor
		cmd.Direction = dir
	case CabinCommand, CancelCommand:
		floor, err := parseFloor(args[1])
		if err != nil {
			return Command{}, err
		}
		cmd.CarID = args[0]
		cmd.Floor = floor
	}
	return cmd, nil
}

func parseFloor(s string) (int, error) {
	floor, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("floor must be an integer, got %q", s)
	}
	return floor, nil
}
