package elevator

import "errors"

var (
	ErrCapacityExceeded = errors.New("car is at capacity")
	ErrUnknownCar       = errors.New("no such elevator")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrEmptyRoster      = errors.New("dispatcher needs at least one car")
	ErrDuplicateCar     = errors.New("duplicate car id")
)
