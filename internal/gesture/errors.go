package gesture

import (
	"errors"
	"fmt"
)

// Sentinel errors for descriptor configuration.
var (
	// ErrNotContinuous is recorded when update/change callbacks or manual
	// activation are set on a discrete gesture.
	ErrNotContinuous = errors.New("gesture kind does not report continuous updates")

	// ErrMixedContexts is recorded when callbacks were registered under an
	// execution context other than the descriptor's.
	ErrMixedContexts = errors.New("callbacks registered under different execution contexts")

	// ErrUnsupportedOption is recorded when an option is set on a kind whose
	// native recognizer does not accept it.
	ErrUnsupportedOption = errors.New("option not supported by gesture kind")

	// ErrSelfRelation is recorded when a descriptor names itself in a relation.
	ErrSelfRelation = errors.New("gesture cannot relate to itself")
)

// ConfigError describes an invalid descriptor.
type ConfigError struct {
	// Tag is the tag of the offending descriptor.
	Tag Tag

	// Kind is its kind.
	Kind Kind

	// Err holds the joined configuration errors.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s gesture %d: %v", e.Kind, e.Tag, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// optionError ties ErrUnsupportedOption to the option name.
type optionError struct {
	option string
	kind   Kind
}

func (e *optionError) Error() string {
	return fmt.Sprintf("%s: %q on %s", ErrUnsupportedOption, e.option, e.kind)
}

func (e *optionError) Is(target error) bool {
	return target == ErrUnsupportedOption
}
