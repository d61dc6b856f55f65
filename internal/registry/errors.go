package registry

import "errors"

// Sentinel errors for the registry package.
var (
	// ErrDuplicateName is returned when a name is already indexed for
	// another live tag.
	ErrDuplicateName = errors.New("gesture name already registered")

	// ErrInvalidTag is returned when registering a descriptor without a
	// valid tag.
	ErrInvalidTag = errors.New("invalid handler tag")
)
