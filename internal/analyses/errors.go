package analyses

import "errors"

var (
	// ErrNotFound is returned by repos when no analysis matches.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput rejects empty or whitespace-only resume text before
	// any model call is made.
	ErrInvalidInput = errors.New("invalid input")
	// ErrFormat means the model output could not be coerced into the
	// expected structure even after one repair attempt.
	ErrFormat = errors.New("analysis format error")
	// ErrUnavailable means the model provider failed after retries.
	ErrUnavailable = errors.New("analysis unavailable")
)

const (
	ErrorCodeValidation       = "VALIDATION_ERROR"
	ErrorCodeModelTimeout     = "MODEL_TIMEOUT"
	ErrorCodeModelUnavailable = "MODEL_UNAVAILABLE"
	ErrorCodeSchemaMismatch   = "MODEL_SCHEMA_MISMATCH"
	ErrorCodeStorage          = "STORAGE_ERROR"
	ErrorCodeInternal         = "INTERNAL_ERROR"
)
