package models

import "time"

type AvailabilityStatus string

const (
	TechnicianAvailable   AvailabilityStatus = "available"
	TechnicianUnavailable AvailabilityStatus = "unavailable"
)

// TechnicianStatus is the single row per technician that assignment consults
// before handing out new work.
type TechnicianStatus struct {
	ID           uint               `json:"id" gorm:"primaryKey"`
	TechnicianID uint               `json:"technician_id" gorm:"uniqueIndex;not null"`
	Status       AvailabilityStatus `json:"status" gorm:"type:varchar(20);not null;default:'available';check:status IN ('available','unavailable')"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`

	Technician *User `json:"technician,omitempty" gorm:"foreignKey:TechnicianID"`
}

func (TechnicianStatus) TableName() string {
	return "technician_statuses"
}

func ParseAvailabilityStatus(raw string) (AvailabilityStatus, bool) {
	switch AvailabilityStatus(raw) {
	case TechnicianAvailable, TechnicianUnavailable:
		return AvailabilityStatus(raw), true
	}
	return "", false
}
