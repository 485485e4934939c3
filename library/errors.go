package library

import (
	"errors"
	"fmt"
)

// Domain errors. Callers match them with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state")
	ErrInvalidRole        = errors.New("invalid role")
	ErrSelfModification   = errors.New("cannot change own role")
	ErrLastAdmin          = errors.New("cannot demote the last admin")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmptyPassword      = errors.New("password must not be empty")
	ErrPasswordTooLong    = errors.New("password is too long")
	ErrInvalidBook        = errors.New("invalid book")
)

// Circulation state errors, all matching ErrInvalidState.
var (
	ErrAlreadyBorrowed   = fmt.Errorf("%w: book is already borrowed", ErrInvalidState)
	ErrNotBorrowed       = fmt.Errorf("%w: book is not borrowed", ErrInvalidState)
	ErrBorrowerNotMember = fmt.Errorf("%w: borrower is not a member", ErrInvalidState)
)

// ErrStorage marks infrastructure failures of the backing database.
var ErrStorage = errors.New("storage error")

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
