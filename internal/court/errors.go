package court

import "errors"

var (
	// ErrInvalidAdjudicationState is returned when an operation does not
	// match the dispute's current round or phase, e.g. appealing a round
	// that is not the latest, or one that is already final.
	ErrInvalidAdjudicationState = errors.New("invalid adjudication state")

	// ErrInsufficientStake is returned when a participant does not meet the
	// configured minimum active stake for the attempted operation.
	ErrInsufficientStake = errors.New("insufficient active stake")

	// ErrDisputeExists is returned when opening a dispute with an id that is
	// already in use.
	ErrDisputeExists = errors.New("dispute already exists")

	// ErrDisputeNotFound is returned when an operation references an unknown
	// dispute id.
	ErrDisputeNotFound = errors.New("dispute not found")

	// ErrJurorExists is returned when registering a juror id twice.
	ErrJurorExists = errors.New("juror already registered")

	// ErrUnknownJuror is returned when an operation references a juror id
	// that was never registered.
	ErrUnknownJuror = errors.New("unknown juror")
)
