package upload

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork is returned when the analysis endpoint could not be reached.
	ErrNetwork = errors.New("network error")
	// ErrResponseBody is returned when a successful response could not be read.
	ErrResponseBody = errors.New("unreadable response body")
	// ErrInvalidInput is returned when the image to upload is missing or unreadable.
	ErrInvalidInput = errors.New("invalid input")
)

// StatusError is returned when the analysis endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analysis request failed with status %d", e.StatusCode)
}
