package services

import "errors"

var (
	// ErrUnauthenticated is returned when a session token is missing, invalid, expired or revoked
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrPermissionDenied is returned when the caller's role or scope does not allow the operation
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when the target record does not exist or is not visible to the caller
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned for malformed requests
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrFailedPrecondition is returned when the record is not in a state that allows the operation
	ErrFailedPrecondition = errors.New("failed precondition")
)
