package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnavailable indicates a product exists but cannot be purchased.
	ErrUnavailable = errors.New("product unavailable")
	// ErrInsufficientStock indicates a requested quantity exceeds live stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrValidation indicates a malformed or incomplete request.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden indicates the caller lacks ownership or role for the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition indicates an illegal order status change.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnauthenticated indicates no valid identity accompanied the request.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// StockError reports which product lacks stock and how much is left.
type StockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid is shorthand for building a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
