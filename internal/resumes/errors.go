package resumes

import "errors"

var (
	// ErrNotFound indicates the resume does not exist or is not visible to the caller.
	ErrNotFound = errors.New("resume not found")
	// ErrInvalidInput indicates a malformed upload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoText indicates the uploaded file produced no extractable text.
	ErrNoText = errors.New("no extractable text")
)
