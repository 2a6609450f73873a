package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: referenced booking or flight does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition: lifecycle guard rejected the operation for the
	// booking's current status. Nothing was mutated.
	ErrInvalidTransition = errors.New("invalid transition for current status")
	// ErrInvalidFlightReference: one or more supplied flight ids do not
	// resolve. Surfaced before any mutation.
	ErrInvalidFlightReference = errors.New("one or more flight ids are invalid")
	// ErrConflict: the resource is locked by another in-flight operation;
	// callers may retry after a short delay.
	ErrConflict = errors.New("resource is being updated by another process")
	// ErrLockTimeout: lock acquisition retries exhausted; fatal for this
	// request, no partial state persisted.
	ErrLockTimeout = errors.New("could not acquire lock")
)

// InsufficientCapacityError reports the flight that broke a multi-flight
// reservation. The coordinator rolls back fully before surfacing it.
type InsufficientCapacityError struct {
	FlightNumber string
	AvailableKg  int
	RequiredKg   int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("flight %s does not have sufficient cargo capacity (%dkg available, %dkg required)",
		e.FlightNumber, e.AvailableKg, e.RequiredKg)
}
