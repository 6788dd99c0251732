package elevator

import (
	"fmt"
	"strings"
)

type Direction int

const (
	Idle Direction = iota
	Up
	Down
)

type directionInfo struct {
	name     string
	opposite Direction
}

var directions = map[Direction]directionInfo{
	Idle: {name: "IDLE", opposite: Idle},
	Up:   {name: "UP", opposite: Down},
	Down: {name: "DOWN", opposite: Up},
}

var directionsByName = map[string]Direction{
	"idle": Idle,
	"up":   Up,
	"down": Down,
}

func (d Direction) String() string {
	if info, ok := directions[d]; ok {
		return info.name
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Opposite returns the reverse travel direction. Idle is its own opposite.
func (d Direction) Opposite() Direction {
	return directions[d].opposite
}

func ParseDirection(s string) (Direction, error) {
	d, ok := directionsByName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return Idle, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
	return d, nil
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
