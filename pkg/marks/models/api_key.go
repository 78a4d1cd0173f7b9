package models

import (
	"time"

	"gorm.io/gorm"
)

// APIKey represents a long-lived credential for headless clients
type APIKey struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	KeyHash    string         `gorm:"uniqueIndex;not null" json:"-"` // SHA-256 hash of the key
	KeyPrefix  string         `gorm:"not null" json:"key_prefix"`    // First 8 chars for identification
	Name       string         `gorm:"not null" json:"name"`
	LastUsedAt *time.Time     `json:"last_used_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
