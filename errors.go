package toolkit

import "errors"

// ErrUnknownStatus is returned when an invalid status string is parsed.
var ErrUnknownStatus = errors.New("toolkit: unknown status")

// ErrUnknownOperation is returned when no handler is registered for an operation.
// It is a configuration error, recorded on the item rather than retried.
var ErrUnknownOperation = errors.New("toolkit: unknown operation")

// ErrUnsupportedFormat is returned by backends for output formats they cannot encode.
var ErrUnsupportedFormat = errors.New("toolkit: unsupported format")

// ErrImageTooLarge is returned when input dimensions exceed the backend's maximum.
var ErrImageTooLarge = errors.New("toolkit: image exceeds maximum dimensions")

// ErrBackendUnavailable is returned when a backend's underlying library cannot serve.
var ErrBackendUnavailable = errors.New("toolkit: backend unavailable")

// ErrItemNotFound is returned when a queue item with the specified ID is not found.
var ErrItemNotFound = errors.New("toolkit: queue item not found")

// ErrNoInput is returned by batch actions invoked without any matching input files.
var ErrNoInput = errors.New("toolkit: no input files")
