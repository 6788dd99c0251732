package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"elevator_dispatch/internal/elevator"
)

// ErrInputClosed is returned by Run when the input reaches end of file before
// an exit command.
var ErrInputClosed = errors.New("console input closed")

// Dispatcher is the set of operations the console drives.
type Dispatcher interface {
	RouteHallRequest(fromFloor int, dir elevator.Direction) (string, error)
	RouteCabinRequest(carID string, toFloor int) error
	Cancel(carID string, floor int) (bool, error)
	Snapshots() []elevator.Snapshot
}

const menu = `
Enter command:
1: External Request (format: 1 fromFloor direction)
2: Internal Request (format: 2 elevatorId toFloor)
3: Cancel Request (format: 3 elevatorId floor)
status: Show car states
4: Exit
`

// Run reads commands from in until an exit command, end of input or ctx
// cancellation. An exit command returns nil; end of input returns
// ErrInputClosed.
func Run(ctx context.Context, in io.Reader, out io.Writer, d Dispatcher) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, menu)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return ErrInputClosed
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, err := Parse(line)
		if err != nil {
			if errors.Is(err, ErrInvalidChoice) {
				fmt.Fprintln(out, "Invalid choice!")
			} else {
				fmt.Fprintf(out, "Invalid input: %v\n", err)
			}
			continue
		}

		if cmd.Kind == ExitCommand {
			fmt.Fprintln(out, "Exiting system!")
			return nil
		}
		Execute(out, d, cmd)
	}
}

// Execute runs a single parsed command and prints its outcome.
func Execute(out io.Writer, d Dispatcher, cmd Command) {
	switch cmd.Kind {
	case HallCommand:
		carID, err := d.RouteHallRequest(cmd.Floor, cmd.Direction)
		switch {
		case errors.Is(err, elevator.ErrCapacityExceeded):
			fmt.Fprintf(out, "Elevator %s is at capacity! Request ignored.\n", carID)
		case err != nil:
			fmt.Fprintf(out, "Request failed: %v\n", err)
		default:
			fmt.Fprintf(out, "Hall request at floor %d (%s) assigned to %s\n", cmd.Floor, cmd.Direction, carID)
		}

	case CabinCommand:
		err := d.RouteCabinRequest(cmd.CarID, cmd.Floor)
		switch {
		case errors.Is(err, elevator.ErrUnknownCar):
			fmt.Fprintln(out, "No such elevator!")
		case errors.Is(err, elevator.ErrCapacityExceeded):
			fmt.Fprintf(out, "Elevator %s is at capacity! Request ignored.\n", cmd.CarID)
		case err != nil:
			fmt.Fprintf(out, "Request failed: %v\n", err)
		default:
			fmt.Fprintf(out, "Request for floor %d sent to %s\n", cmd.Floor, cmd.CarID)
		}

	case CancelCommand:
		found, err := d.Cancel(cmd.CarID, cmd.Floor)
		switch {
		case errors.Is(err, elevator.ErrUnknownCar):
			fmt.Fprintln(out, "No such elevator!")
		case err != nil:
			fmt.Fprintf(out, "Cancel failed: %v\n", err)
		case found:
			fmt.Fprintf(out, "Request for floor %d canceled in elevator %s\n", cmd.Floor, cmd.CarID)
		default:
			fmt.Fprintf(out, "No such request for floor %d found in elevator %s\n", cmd.Floor, cmd.CarID)
		}

	case StatusCommand:
		for _, snap := range d.Snapshots() {
			fmt.Fprintln(out, FormatSnapshot(snap))
		}
	}
}

func FormatSnapshot(snap elevator.Snapshot) string {
	return fmt.Sprintf("%s: floor=%d direction=%s load=%d/%d up=%v down=%v",
		snap.ID, snap.CurrentFloor, snap.Direction, snap.CurrentLoad, snap.Capacity, snap.Ascending, snap.Descending)
}
