package collector

import (
	"errors"
	"fmt"
)

var (
	// ErrPayloadTooLarge is returned when a request body exceeds the limit.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrInvalidPayload is returned when a request body is not valid JSON.
	ErrInvalidPayload = errors.New("invalid payload")
)

// UploadError reports that the collector did not accept an upload.
// StatusCode is zero when the request never received a response.
type UploadError struct {
	StatusCode int
	Detail     string
	Err        error
}

// Error implements the error interface.
func (e *UploadError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upload failed: %v", e.Err)
	}
	if e.Detail == "" {
		return fmt.Sprintf("upload failed: %d", e.StatusCode)
	}
	return fmt.Sprintf("upload failed: %d %s", e.StatusCode, e.Detail)
}

// Unwrap returns the transport error, if any.
func (e *UploadError) Unwrap() error {
	return e.Err
}
