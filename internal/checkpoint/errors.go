package checkpoint

import "errors"

var (
	// ErrPastTerm is returned when a write targets a term strictly earlier
	// than the most recent checkpoint. History is append-only; only the
	// latest checkpoint may be overwritten, and only at its exact term.
	ErrPastTerm = errors.New("checkpoint write to a past term")
)
