package models

import (
	"time"
)

// RefreshToken is a long-lived session handle. Only its SHA-256 digest is stored.
type RefreshToken struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	TokenHash string     `json:"-" gorm:"size:64;uniqueIndex;not null"`
	UserID    uint       `json:"user_id" gorm:"not null;index"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null;index"`
	RevokedAt *time.Time `json:"revoked_at"`
	UserAgent string     `json:"user_agent" gorm:"size:500"`
	IPAddress string     `json:"ip_address" gorm:"size:45"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the RefreshToken model
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// IsValid checks the token is neither expired nor revoked at the given instant
func (rt *RefreshToken) IsValid(now time.Time) bool {
	return rt.RevokedAt == nil && now.Before(rt.ExpiresAt)
}
