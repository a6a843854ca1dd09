package models

import "fmt"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusDeclined  BookingStatus = "declined"
)

// ActiveBookingStatuses hold a slot and keep a technician busy.
var ActiveBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
}

var bookingTransitions = map[BookingStatus]map[BookingStatus]struct{}{
	BookingStatusPending: {
		BookingStatusConfirmed: {},
		BookingStatusDeclined:  {},
		BookingStatusCancelled: {},
	},
	BookingStatusConfirmed: {
		BookingStatusCompleted: {},
		BookingStatusCancelled: {},
	},
}

// ParseBookingStatus converts raw input into a known status.
func ParseBookingStatus(raw string) (BookingStatus, error) {
	status := BookingStatus(raw)
	switch status {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted,
		BookingStatusCancelled, BookingStatusDeclined:
		return status, nil
	}
	return "", fmt.Errorf("unknown booking status %q", raw)
}

// IsTerminal reports whether no further transition is permitted.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCompleted, BookingStatusCancelled, BookingStatusDeclined:
		return true
	}
	return false
}

// IsActive reports whether the booking still occupies its slot.
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// CanTransition is the single check for status changes. Staying in the same
// non-terminal status is allowed so notes can be updated without moving.
func CanTransition(from, to BookingStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if from == to {
		return true
	}
	_, ok := bookingTransitions[from][to]
	return ok
}

// CanReassign reports whether a technician may be (re)assigned. Assignment
// puts the booking back to pending.
func CanReassign(from BookingStatus) bool {
	return !from.IsTerminal()
}
