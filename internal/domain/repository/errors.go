package repository

import "errors"

var (
	// ErrNotFound is returned by reads when no matching row or object exists
	// (including owner-scoped reads where the record belongs to someone else).
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert violates a uniqueness constraint.
	ErrConflict = errors.New("already exists")
)
