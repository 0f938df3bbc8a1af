package tmplstream

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnnamedSource is wrapped by the ConfigurationError returned when a
// collection has no names for its entries.
var ErrUnnamedSource = errors.New("registration source has no name")

// ConfigurationError is returned when a transform input is malformed. It is
// reported for every item.
type ConfigurationError struct {
	// Target is "data", "partials" or "helpers".
	Target string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Target, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error { return e.Err }

// ResolutionError is returned when a source fails to settle or a settled
// value cannot be registered.
type ResolutionError struct {
	Target string
	// Name of the failed entry, empty for data and whole sequences.
	Name string
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("resolve %s: %s", e.Target, e.Err)
	}
	return fmt.Sprintf("resolve %s %q: %s", e.Target, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ResolutionError) Unwrap() error { return e.Err }

// CompilationError is returned when the engine cannot parse an item.
type CompilationError struct {
	Err error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("compile: %s", e.Err)
}

// Unwrap returns the underlying error.
func (e *CompilationError) Unwrap() error { return e.Err }

// EvaluationError is returned when executing a compiled item fails, for
// example a helper returning an error or a missing partial.
type EvaluationError struct {
	Err error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate: %s", e.Err)
}

// Unwrap returns the underlying error.
func (e *EvaluationError) Unwrap() error { return e.Err }

// ItemError ties a failure to the item it happened on.
type ItemError struct {
	Path string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ItemError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
