package services

// Notifier pushes booking events to connected users.
type Notifier interface {
	NotifyUser(userID uint, event string, payload interface{})
}

type noopNotifier struct{}

func (noopNotifier) NotifyUser(uint, string, interface{}) {}

// Booking events sent to clients.
const (
	EventBookingCreated   = "booking_created"
	EventBookingAssigned  = "booking_assigned"
	EventBookingUpdated   = "booking_updated"
	EventBookingCancelled = "booking_cancelled"
	EventAccountSuspended = "account_suspended"
)
