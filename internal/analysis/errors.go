package analysis

import "errors"

var (
	// ErrFileNotFound means an image mode was called without an upload.
	ErrFileNotFound = errors.New("no image uploaded")
	// ErrAuthenticationRequired means no user identity reached the pipeline.
	ErrAuthenticationRequired = errors.New("user authentication required")
	// ErrValidation wraps missing required request fields.
	ErrValidation = errors.New("missing required fields")
	// ErrUnknownPersistence wraps user store failures other than a missing user.
	ErrUnknownPersistence = errors.New("unknown persistence error")
	// ErrResultNotFound is returned when no analysis with that id belongs to the user.
	ErrResultNotFound = errors.New("result not found")
)
