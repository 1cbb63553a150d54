package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this username already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrNoteNotFound indicates that note does not exist or belongs to another user
	ErrNoteNotFound = errors.New("note not found")

	// ErrSubscriptionNotFound indicates that push subscription was not found
	ErrSubscriptionNotFound = errors.New("push subscription not found")
)
