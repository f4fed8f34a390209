package model

import "errors"

var (
	// ErrNotFound is returned when an entity is required to exist and does not.
	ErrNotFound = errors.New("entity was not found")

	// ErrValidation is returned when an operation is rejected before any
	// mutation is attempted because its input is malformed.
	ErrValidation = errors.New("validation failed")

	// ErrHasFriendships is returned when deleting a user that still has edges.
	// The caller is expected to unlink first and retry.
	ErrHasFriendships = errors.New("user has existing friendships")
)
