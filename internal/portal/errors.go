package portal

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports missing setup: no live snapshot, portal id,
	// publishing state, default page template, or file identifiers.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotFound reports a workspace path that maps to no known entity.
	ErrNotFound = errors.New("not found")

	// ErrIntegrity reports an empty remote result where one was required.
	ErrIntegrity = errors.New("integrity error")
)

// NotFoundError names the path that could not be resolved.
type NotFoundError struct {
	Path string
	Type EntityType
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s is mapped to %s", e.Type, e.Path)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
