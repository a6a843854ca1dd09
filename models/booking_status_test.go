package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to BookingStatus
		want     bool
	}{
		{BookingStatusPending, BookingStatusConfirmed, true},
		{BookingStatusPending, BookingStatusDeclined, true},
		{BookingStatusPending, BookingStatusCancelled, true},
		{BookingStatusPending, BookingStatusPending, true},
		{BookingStatusPending, BookingStatusCompleted, false},
		{BookingStatusConfirmed, BookingStatusCompleted, true},
		{BookingStatusConfirmed, BookingStatusCancelled, true},
		{BookingStatusConfirmed, BookingStatusDeclined, false},
		{BookingStatusConfirmed, BookingStatusPending, false},
		{BookingStatusCompleted, BookingStatusCompleted, false},
		{BookingStatusCompleted, BookingStatusCancelled, false},
		{BookingStatusCancelled, BookingStatusPending, false},
		{BookingStatusDeclined, BookingStatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTerminalAndReassign(t *testing.T) {
	for _, s := range []BookingStatus{BookingStatusCompleted, BookingStatusCancelled, BookingStatusDeclined} {
		assert.True(t, s.IsTerminal(), s)
		assert.False(t, s.IsActive(), s)
		assert.False(t, CanReassign(s), s)
	}
	for _, s := range ActiveBookingStatuses {
		assert.False(t, s.IsTerminal(), s)
		assert.True(t, CanReassign(s), s)
	}
}

func TestParseBookingStatus(t *testing.T) {
	status, err := ParseBookingStatus("confirmed")
	assert.NoError(t, err)
	assert.Equal(t, BookingStatusConfirmed, status)

	_, err = ParseBookingStatus("Confirmed")
	assert.Error(t, err)
	_, err = ParseBookingStatus("")
	assert.Error(t, err)
}

func TestParseAvailabilityStatus(t *testing.T) {
	status, ok := ParseAvailabilityStatus("unavailable")
	assert.True(t, ok)
	assert.Equal(t, TechnicianUnavailable, status)

	_, ok = ParseAvailabilityStatus("busy")
	assert.False(t, ok)
}

func TestBookingIsAssignedTo(t *testing.T) {
	var b Booking
	assert.False(t, b.IsAssignedTo(1))

	id := uint(4)
	b.TechnicianID = &id
	assert.True(t, b.IsAssignedTo(4))
	assert.False(t, b.IsAssignedTo(5))
}
