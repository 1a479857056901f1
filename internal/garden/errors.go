package garden

import "errors"

var (
	// ErrInvalidInput is returned when a request is missing required values.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when an image path is not part of the garden.
	ErrNotFound = errors.New("not found")
	// ErrCaptureFailed is returned when no photo could be captured.
	ErrCaptureFailed = errors.New("capture failed")
)
