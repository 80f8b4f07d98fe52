package userrepo

import "errors"

var (
	// ErrNotFound indicates the requested user does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrSubjectAlreadyBound indicates a user already exists for the provided subject.
	ErrSubjectAlreadyBound = errors.New("user subject already bound")

	// ErrEmailAlreadyInUse indicates another user already owns the email address.
	ErrEmailAlreadyInUse = errors.New("user email already in use")

	// ErrAlreadyExists indicates a user already exists with the provided ID.
	ErrAlreadyExists = errors.New("user already exists")
)
