package reconcile

import (
	"errors"
	"fmt"

	"github.com/dshills/gesturekit/internal/gesture"
)

// Sentinel errors for the reconcile package.
var (
	// ErrUnmounted is returned when updating a root that was unmounted.
	ErrUnmounted = errors.New("attachment root is unmounted")

	// ErrDuplicateTag is returned when one tree holds the same tag twice.
	ErrDuplicateTag = errors.New("duplicate handler tag in gesture tree")
)

// Op names the lifecycle step that failed.
type Op string

const (
	OpValidate Op = "validate"
	OpCreate   Op = "create"
	OpRegister Op = "register"
	OpAttach   Op = "attach"
)

// AttachError reports a leaf that could not be made live. Other leaves
// of the same pass are not affected.
type AttachError struct {
	Tag  gesture.Tag
	Kind gesture.Kind
	Op   Op
	Err  error
}

// Error implements the error interface.
func (e *AttachError) Error() string {
	return fmt.Sprintf("%s %s gesture %d: %v", e.Op, e.Kind, e.Tag, e.Err)
}

// Unwrap returns the underlying error.
func (e *AttachError) Unwrap() error {
	return e.Err
}
