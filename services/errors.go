package services

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map these to HTTP statuses with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")
)

var (
	ErrBookingNotFound     = fmt.Errorf("%w: booking not found", ErrNotFound)
	ErrServiceTypeNotFound = fmt.Errorf("%w: service type not found", ErrNotFound)
	ErrTechnicianNotFound  = fmt.Errorf("%w: technician not found", ErrNotFound)
	ErrUserNotFound        = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrTechnicianBusy      = fmt.Errorf("%w: technician currently unavailable", ErrConflict)
	ErrNotAssigned         = fmt.Errorf("%w: you are not assigned to this booking", ErrForbidden)
	ErrNotOwner            = fmt.Errorf("%w: booking belongs to another customer", ErrForbidden)
	ErrAccountDeactivated  = fmt.Errorf("%w: cancellation limit reached, account has been deactivated", ErrForbidden)
	ErrBookingTerminal     = fmt.Errorf("%w: booking is already closed", ErrValidation)
	ErrInvalidAction       = fmt.Errorf("%w: action must be accept or decline", ErrValidation)
	ErrInvalidStatus       = fmt.Errorf("%w: invalid booking status", ErrValidation)
	ErrIllegalTransition   = fmt.Errorf("%w: status change not allowed", ErrValidation)
	ErrMissingDateOrTime   = fmt.Errorf("%w: date and time are required", ErrValidation)
	ErrInvalidDate         = fmt.Errorf("%w: date must be formatted as YYYY-MM-DD", ErrValidation)
	ErrInvalidTimeSlot     = fmt.Errorf("%w: time is not a bookable slot", ErrValidation)
	ErrServiceTypeInactive = fmt.Errorf("%w: service type is not currently offered", ErrValidation)
	ErrTechnicianInactive  = fmt.Errorf("%w: technician account is inactive", ErrValidation)
	ErrFutureBookingCancel = fmt.Errorf("%w: upcoming bookings cannot be cancelled by the technician", ErrValidation)
	ErrInvalidPayment      = fmt.Errorf("%w: invalid payment details", ErrValidation)
	ErrInvalidCredentials  = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrInvalidRefreshToken = fmt.Errorf("%w: refresh token is invalid or expired", ErrUnauthorized)
	ErrInactiveAccount     = fmt.Errorf("%w: account is deactivated", ErrUnauthorized)
)

// internal wraps an unexpected store failure.
func internal(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, op, err)
}
