package models

import (
	"time"

	"gorm.io/gorm"
)

type ServiceTypeStatus string

const (
	ServiceTypeActive   ServiceTypeStatus = "active"
	ServiceTypeInactive ServiceTypeStatus = "inactive"
)

// ServiceType is a catalog entry. Bookings copy its name, price and duration
// when they are created or when the technician switches service, so later
// catalog edits never touch existing bookings.
type ServiceType struct {
	ID          uint              `json:"id" gorm:"primaryKey"`
	Name        string            `json:"name" gorm:"type:varchar(200);not null"`
	Description string            `json:"description" gorm:"type:text"`
	Price       float64           `json:"price" gorm:"type:decimal(10,2);not null"`
	Duration    int               `json:"duration" gorm:"not null"` // in hours
	Status      ServiceTypeStatus `json:"status" gorm:"type:varchar(20);not null;default:'active'"`
	Images      StringList        `json:"images" gorm:"serializer:json;type:text"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   gorm.DeletedAt    `json:"deleted_at,omitempty" gorm:"index"`
}

// ServiceTypeRequest represents the request structure for creating/updating service types
type ServiceTypeRequest struct {
	Name        string            `json:"name" binding:"required"`
	Description string            `json:"description"`
	Price       float64           `json:"price" binding:"gte=0"`
	Duration    int               `json:"duration" binding:"required,gt=0"`
	Status      ServiceTypeStatus `json:"status"`
	Images      []string          `json:"images"`
}

// TableName specifies the table name for the ServiceType model
func (ServiceType) TableName() string {
	return "service_types"
}

// IsActive reports whether the service can be booked
func (s *ServiceType) IsActive() bool {
	return s.Status == "" || s.Status == ServiceTypeActive
}
