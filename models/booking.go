package models

import (
	"time"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPartial  PaymentStatus = "partial"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func IsValidPaymentStatus(status PaymentStatus) bool {
	switch status {
	case PaymentStatusUnpaid, PaymentStatusPartial, PaymentStatusPaid, PaymentStatusRefunded:
		return true
	}
	return false
}

// StringList is stored as a JSON array column.
type StringList []string

type Booking struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	CustomerID    uint          `json:"customer_id" gorm:"not null;index"`
	TechnicianID  *uint         `json:"technician_id" gorm:"index"` // null until assignment
	ServiceTypeID uint          `json:"service_type_id" gorm:"not null"`
	ServiceName   string        `json:"service_name" gorm:"type:varchar(200);not null"`
	Date          string        `json:"date" gorm:"type:varchar(10);not null;index:idx_bookings_date_time"`
	Time          string        `json:"time" gorm:"type:varchar(10);not null;index:idx_bookings_date_time"`
	Duration      int           `json:"duration" gorm:"not null"`
	Price         float64       `json:"price" gorm:"type:decimal(10,2);not null"`
	PaymentMethod string        `json:"payment_method" gorm:"type:varchar(30)"`
	PaymentStatus PaymentStatus `json:"payment_status" gorm:"type:varchar(20);not null;default:'unpaid'"`
	AmountPaid    float64       `json:"amount_paid" gorm:"type:decimal(10,2);not null;default:0"`
	Status        BookingStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index;check:status IN ('pending','confirmed','completed','cancelled','declined')"`
	Notes         string        `json:"notes" gorm:"type:text"`
	CancelReason  string        `json:"cancel_reason" gorm:"type:text"`
	ProofImages   StringList    `json:"proof_images" gorm:"serializer:json;type:text"`
	ReceiptNumber *string       `json:"receipt_number" gorm:"type:varchar(100)"`
	CreatedAt     time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time     `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Customer          *User              `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Technician        *User              `json:"technician,omitempty" gorm:"foreignKey:TechnicianID"`
	ServiceType       *ServiceType       `json:"service_type,omitempty" gorm:"foreignKey:ServiceTypeID"`
	ServiceChangeLogs []ServiceChangeLog `json:"service_change_logs" gorm:"foreignKey:BookingID"`
}

// TableName specifies the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}

// IsAssignedTo reports whether userID is the booking's technician
func (b *Booking) IsAssignedTo(userID uint) bool {
	return b.TechnicianID != nil && *b.TechnicianID == userID
}

// ServiceChangeLog records a technician switching the booked service.
// Rows are only ever appended.
type ServiceChangeLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BookingID uint      `json:"booking_id" gorm:"not null;index"`
	From      string    `json:"from" gorm:"column:from_service;type:varchar(200);not null"`
	To        string    `json:"to" gorm:"column:to_service;type:varchar(200);not null"`
	ChangedAt time.Time `json:"changed_at" gorm:"not null"`
}

func (ServiceChangeLog) TableName() string {
	return "booking_service_changes"
}

// CreateBookingRequest is the customer payload for POST /book
type CreateBookingRequest struct {
	ServiceTypeID uint   `json:"service_type_id" binding:"required"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	PaymentMethod string `json:"payment_method"`
	Notes         string `json:"notes"`
}

// AssignTechnicianRequest is the admin payload for PUT /book/assign/:id
type AssignTechnicianRequest struct {
	TechnicianID uint `json:"technician_id" binding:"required"`
}

// RespondRequest is the technician payload for accept/decline
type RespondRequest struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
}

// UpdateStatusRequest carries a new status and optional notes
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// ChangeServiceRequest switches the booked service type
type ChangeServiceRequest struct {
	ServiceTypeID uint `json:"service_type_id" binding:"required"`
}

// CancelRequest carries an optional reason
type CancelRequest struct {
	Reason string `json:"reason"`
}

// AdminStatusRequest is the admin payload for PUT /book/:id
type AdminStatusRequest struct {
	Status       string `json:"status" binding:"required"`
	CancelReason string `json:"cancel_reason"`
}

// PaymentRequest records a payment against a booking
type PaymentRequest struct {
	PaymentStatus PaymentStatus `json:"payment_status" binding:"required"`
	AmountPaid    float64       `json:"amount_paid"`
}
