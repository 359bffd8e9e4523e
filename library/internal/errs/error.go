package errs

import (
	"errors"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateID          = errors.New("duplicate id")
	ErrAlreadyCheckedOut    = errors.New("book is already checked out")
	ErrNotCheckedOut        = errors.New("book is not checked out")
	ErrStillCheckedOut      = errors.New("still checked out")
	ErrLimitExceeded        = errors.New("checkout limit exceeded")
	ErrDuplicateReservation = errors.New("reservation already exists")
	ErrInvalidPlan          = errors.New("invalid membership plan")
	ErrInvalidRating        = errors.New("rating must be between 1 and 5")
)

type ErrorResponse struct {
	Message string `json:"message"`
}
