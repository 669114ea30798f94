package faults

import "errors"

// DependencyError reports a failed call to an external collaborator.
type DependencyError struct {
	Step string
	Err  error
}

func (e *DependencyError) Error() string {
	if e.Err == nil {
		return e.Step + " failed"
	}
	return e.Step + ": " + e.Err.Error()
}

func (e *DependencyError) Unwrap() error { return e.Err }

// Dependency wraps err as a DependencyError for the named step.
// Returns nil when err is nil.
func Dependency(step string, err error) error {
	if err == nil {
		return nil
	}
	return &DependencyError{Step: step, Err: err}
}

// IsDependency reports whether err is (or wraps) a DependencyError.
func IsDependency(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}

// FormatError reports malformed input: a timestamp or payload that
// could not be parsed.
type FormatError struct {
	Msg string
	Err error
}

func (e *FormatError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *FormatError) Unwrap() error { return e.Err }

// Format wraps err as a FormatError. err may be nil when the message
// alone describes the problem.
func Format(msg string, err error) error {
	return &FormatError{Msg: msg, Err: err}
}

// IsFormat reports whether err is (or wraps) a FormatError.
func IsFormat(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// ConfigError reports a required configuration key that was not supplied.
type ConfigError struct {
	Key string
}

func (e *ConfigError) Error() string { return "missing required config " + e.Key }

// Config returns a ConfigError for key.
func Config(key string) error { return &ConfigError{Key: key} }
