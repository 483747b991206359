// api/errors/entity_errors.go
package errors

import "errors"

var (
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrResourceNotFound = errors.New("resource not found")
)
