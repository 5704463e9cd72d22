package repositories

import "errors"

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a guarded write finds the record changed since it was read
var ErrConflict = errors.New("record changed concurrently")
