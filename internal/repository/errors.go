package repository

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by Save when the record changed since it was read.
	ErrConflict = errors.New("conflict: record was modified concurrently")
)
