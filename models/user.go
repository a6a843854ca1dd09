package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleCustomer   UserRole = "customer"
	RoleTechnician UserRole = "technician"
	RoleManager    UserRole = "manager"
	RoleAdmin      UserRole = "admin"
)

type User struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	FullName          string    `json:"full_name" gorm:"size:255;not null"`
	Email             string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PhoneNumber       string    `json:"phone_number" gorm:"size:20"`
	Address           string    `json:"address" gorm:"size:500"`
	PasswordHash      string    `json:"-" gorm:"size:255;not null"` // Hidden from JSON
	Role              UserRole  `json:"role" gorm:"type:varchar(20);not null;default:'customer';check:role IN ('customer','technician','manager','admin')"`
	ProfilePictureURL *string   `json:"profile_picture_url" gorm:"size:255"`
	CancellationCount int       `json:"cancellation_count" gorm:"not null;default:0"`
	IsActive          bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt         time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate is a GORM hook that runs before creating a user
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleCustomer
	}
	if !u.IsValidRole() {
		return fmt.Errorf("invalid user role %q", u.Role)
	}
	return nil
}

// IsValidRole checks if the user role is valid
func (u *User) IsValidRole() bool {
	return IsValidRole(u.Role)
}

func IsValidRole(role UserRole) bool {
	switch role {
	case RoleCustomer, RoleTechnician, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsTechnician checks if the user is a technician
func (u *User) IsTechnician() bool {
	return u.Role == RoleTechnician
}

// IsAdmin checks if the user is an admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsStaff reports whether the user may manage bookings (admin or manager)
func (u *User) IsStaff() bool {
	return u.IsAdmin() || u.Role == RoleManager
}
