package domain

import (
	"errors"
	"fmt"
)

// ErrSuperseded marks a recomputation whose results were discarded because
// a newer request replaced it while it was in flight.
var ErrSuperseded = errors.New("recomputation superseded by a newer request")

// InvalidJourneyError reports a malformed input track list. Fatal to the run.
type InvalidJourneyError struct {
	Reason string
}

func (e *InvalidJourneyError) Error() string {
	return fmt.Sprintf("invalid journey: %s", e.Reason)
}

// DegenerateAreaError reports a journey too small to form a sane bounding
// area. Fatal to the run.
type DegenerateAreaError struct {
	Bounds  Bounds
	ExtentM float64
}

func (e *DegenerateAreaError) Error() string {
	return fmt.Sprintf("degenerate area: journey spans only %.1f m", e.ExtentM)
}

// DataUnavailableError reports a failed external fetch for one layer.
// Recoverable: the failure is not cached and the next get retries.
type DataUnavailableError struct {
	Kind LayerKind
	Err  error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("layer %s unavailable: %v", e.Kind, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }
