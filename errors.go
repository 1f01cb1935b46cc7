package ostinato

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common failure classes.
var (
	// ErrNoEngine is returned when a query is run against a table with no
	// bound execution engine.
	ErrNoEngine = errors.New("ostinato: table has no engine defined")

	// ErrFrozen is returned when a structural mutation is attempted on a
	// frozen query.
	ErrFrozen = errors.New("ostinato: query is frozen")

	// ErrChainTooLong is returned when a join chain exceeds the maximum
	// traversal depth.
	ErrChainTooLong = errors.New("ostinato: join chain too long")
)

// ConfigError reports an invalid schema or query declaration: a bad default
// type, a malformed digits pair, a missing target column, an ambiguous
// many-to-many role. Configuration errors are raised at declaration or build
// time, never at execution time.
type ConfigError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("ostinato: configuration: %s", e.msg)
}

// Unwrap returns the underlying error, if any.
func (e *ConfigError) Unwrap() error { return e.wrap }

// NewConfigError returns a new ConfigError with a formatted message.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e)
}

// TraversalError reports a failed relationship traversal: a join chain over
// the depth cap, or an unresolved table reference. Traversal errors are
// raised when the offending path is built, before any statement exists.
type TraversalError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e *TraversalError) Error() string {
	return fmt.Sprintf("ostinato: traversal: %s", e.msg)
}

// Unwrap returns the underlying error, if any.
func (e *TraversalError) Unwrap() error { return e.wrap }

// Is reports whether the target matches the chain-length sentinel.
func (e *TraversalError) Is(err error) bool {
	return err == ErrChainTooLong && e.wrap == ErrChainTooLong
}

// NewTraversalError returns a new TraversalError with a formatted message.
func NewTraversalError(format string, args ...any) *TraversalError {
	return &TraversalError{msg: fmt.Sprintf(format, args...)}
}

// ChainTooLongError returns the TraversalError raised when a join chain
// exceeds maxDepth hops.
func ChainTooLongError(length, maxDepth int) *TraversalError {
	return &TraversalError{
		msg:  fmt.Sprintf("join chain of length %d exceeds the maximum depth of %d", length, maxDepth),
		wrap: ErrChainTooLong,
	}
}

// IsTraversalError returns true if the error is a TraversalError.
func IsTraversalError(err error) bool {
	if err == nil {
		return false
	}
	var e *TraversalError
	return errors.As(err, &e)
}

// DialectError reports an operation the current dialect cannot perform, or a
// dialect with no renderer. The message names the dialect and the missing
// capability; there is no silent downgrade.
type DialectError struct {
	Dialect    string
	Capability string
}

// Error returns the error string.
func (e *DialectError) Error() string {
	return fmt.Sprintf("ostinato: dialect %s does not support %s", e.Dialect, e.Capability)
}

// NewDialectError returns a new DialectError.
func NewDialectError(dialectName, capability string) *DialectError {
	return &DialectError{Dialect: dialectName, Capability: capability}
}

// IsDialectError returns true if the error is a DialectError.
func IsDialectError(err error) bool {
	if err == nil {
		return false
	}
	var e *DialectError
	return errors.As(err, &e)
}

// PrecisionError reports a value that cannot be represented faithfully by
// the current dialect, such as a sub-millisecond duration remainder on a
// dialect using string-formatted timestamp arithmetic. It must be raised
// rather than silently truncating.
type PrecisionError struct {
	msg string
}

// Error returns the error string.
func (e *PrecisionError) Error() string {
	return fmt.Sprintf("ostinato: precision: %s", e.msg)
}

// NewPrecisionError returns a new PrecisionError with a formatted message.
func NewPrecisionError(format string, args ...any) *PrecisionError {
	return &PrecisionError{msg: fmt.Sprintf(format, args...)}
}

// IsPrecisionError returns true if the error is a PrecisionError.
func IsPrecisionError(err error) bool {
	if err == nil {
		return false
	}
	var e *PrecisionError
	return errors.As(err, &e)
}
