package core

import (
	"errors"
)

var (
	// ErrRingStall is returned when a frame-resource slot's fence value is
	// not reached within the configured stall timeout.
	ErrRingStall = errors.New("frame resource ring stalled waiting on fence")
	// ErrUnknownGeometry is returned when a shape name has no registered
	// sub-range in the geometry store.
	ErrUnknownGeometry = errors.New("unknown geometry name")
)
