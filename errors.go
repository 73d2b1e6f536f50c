// FILE: lixenwraith/runconfig/errors.go
package runconfig

import (
	"errors"
	"fmt"
)

// DefaultConfigFile labels errors raised for directory-only runs, where no
// configuration file was resolved.
const DefaultConfigFile = "<default config>"

var (
	// ErrConfigNotFound is returned when the requested path does not exist at all.
	ErrConfigNotFound = errors.New("configuration path not found")

	// ErrNoFragments is returned by Merge when called without fragments.
	ErrNoFragments = errors.New("at least one configuration fragment is required")

	// ErrUnsupportedFormat is returned when no decoder is registered for a file extension.
	ErrUnsupportedFormat = errors.New("unsupported configuration format")

	// ErrCLIParse wraps failures while parsing command-line overrides.
	ErrCLIParse = errors.New("failed to parse command-line overrides")

	// ErrNotObject is returned when a value that must be an object is not.
	ErrNotObject = errors.New("value is not an object")

	// ErrNotWatchable is returned when a configuration has no directory on disk to watch.
	ErrNotWatchable = errors.New("configuration cannot be watched")
)

// ValidationError reports the first problem found in a configuration.
type ValidationError struct {
	// File is the configuration file, or DefaultConfigFile.
	File string

	// Path is the dotted location of the offending option, empty for
	// structural errors that carry their own label in Message.
	Path string

	// Message is the full human-readable diagnostic.
	Message string

	// Received is the offending value, meaningful only when HasReceived is set.
	Received    any
	HasReceived bool
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	file := e.File
	if file == "" {
		file = DefaultConfigFile
	}
	return fmt.Sprintf("%s: %s", file, e.Message)
}

// newValidationError creates a structural error without a received value.
func newValidationError(file, message string) *ValidationError {
	return &ValidationError{File: file, Message: message}
}
