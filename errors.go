package cache

import (
	"errors"
	"fmt"
)

// Errors returned by the store and the facade. Not-found is never an error:
// reads report it as absent / empty, removals as false.
var (
	// ErrInvalidArgument marks an empty primary key, an absent value or a nil loader.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrClosed marks an operation attempted after Close.
	ErrClosed = errors.New("cache closed")
)

// IsInvalidArgument reports whether err was caused by bad caller input.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsClosed reports whether err was caused by using a closed cache.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// invalidArgument follows the "component.method: cause: detail" shape.
func invalidArgument(op, detail string) error {
	return fmt.Errorf("cache.%s: %w: %s", op, ErrInvalidArgument, detail)
}

func closedError(op string) error {
	return fmt.Errorf("cache.%s: %w", op, ErrClosed)
}
