package errs

import (
	"errors"
)

// Validation: rejected before any state change.
var (
	ErrInvalidDateRange = errors.New("expected return date must be after borrow date")
)

// Conflict: business-rule violations against current state.
var (
	ErrBookUnavailable = errors.New("book is not available")
	ErrPendingPayment  = errors.New("borrower has a pending payment")
	ErrAlreadyReturned = errors.New("borrowing is already returned")
	ErrLimitReached    = errors.New("limit reached")
	ErrPaymentExists   = errors.New("payment already exists for this borrowing")
	ErrPaymentSettled  = errors.New("payment is already settled")
)

var (
	ErrNotFound = errors.New("not found")
)

// Dependency: an external collaborator is unreachable or erroring.
var (
	ErrGatewayUnavailable = errors.New("payment gateway is unavailable")
)
