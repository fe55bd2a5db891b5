package errs

import (
	"errors"
	"fmt"
)

// ConfigError is fatal: bad flag values, unknown aliases, unparseable
// globs or durations. Raised before any listing or transfer starts.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Configf builds a ConfigError from a format string.
func Configf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// ConfigWrap builds a ConfigError that wraps an underlying error.
func ConfigWrap(err error, msg string) error {
	return &ConfigError{Msg: msg, Err: err}
}

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

// ListError means an enumeration failed after retries; the whole
// operation aborts rather than planning against a partial listing.
type ListError struct {
	Scope string
	Err   error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("listing %s: %v", e.Scope, e.Err)
}

func (e *ListError) Unwrap() error { return e.Err }

// TransferError is scoped to a single task; the rest of the batch keeps
// going when one of these occurs.
type TransferError struct {
	Key string
	Op  string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// CycleError wraps whatever went wrong inside one watch cycle. The loop
// logs it and keeps running.
type CycleError struct {
	Cycle int
	Err   error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("watch cycle %d: %v", e.Cycle, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }
