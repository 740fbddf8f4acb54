package sumtree

import "errors"

var (
	// ErrOverflow is returned when a write would push the total tree weight
	// past the storable bound. The tree is left untouched.
	ErrOverflow = errors.New("total tree weight exceeds the storable bound")

	// ErrUnderflow is returned when a negative update exceeds the leaf's
	// current value.
	ErrUnderflow = errors.New("update exceeds the leaf's current value")

	// ErrKeyNotFound is returned when an operation references a leaf key that
	// was never inserted.
	ErrKeyNotFound = errors.New("unknown leaf key")

	// ErrSearchOutOfBounds is returned when a search target is not strictly
	// below the total weight at the requested term, or when the tree has no
	// recorded weight at that term.
	ErrSearchOutOfBounds = errors.New("search target out of bounds")
)
