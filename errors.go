package vtsmap

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady marks a transient state: the map config is not loaded yet
	// or a resource has not been uploaded. Callers skip the tick.
	ErrNotReady = errors.New("vts: not ready")

	// ErrDegenerate marks a singular matrix or a NaN sentinel.
	ErrDegenerate = errors.New("vts: degenerate transform")
)

// UnsupportedError identifies an enumerant of external data this layer cannot
// materialize. The affected resource is dropped, nothing else is.
type UnsupportedError struct {
	What  string
	Value int
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("vts: unsupported %s (%d)", e.What, e.Value)
}

func unsupported(what string, value int) error {
	return &UnsupportedError{What: what, Value: value}
}
