// api/errors/engine_errors.go
package errors

import "errors"

var (
	// Fatal to a decide call: the caller gets an error, never a Decision.
	ErrRepositoryUnavailable = errors.New("policy repository unavailable")
	ErrInvalidRequest        = errors.New("invalid evaluation request")

	// Degrade toward the fail-closed default; the decision continues.
	ErrMalformedPolicy  = errors.New("malformed policy definition")
	ErrDirectoryTimeout = errors.New("directory lookup timed out")

	ErrInternalServer = errors.New("internal server error")
)
