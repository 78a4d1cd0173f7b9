package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an authenticated owner of bookmarks
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `json:"-"` // Empty for OAuth-only users
	Name         string         `gorm:"not null" json:"name"`
	Active       bool           `gorm:"default:true" json:"active"`

	// Relationships
	Bookmarks       []Bookmark      `gorm:"foreignKey:OwnerID" json:"bookmarks,omitempty"`
	APIKeys         []APIKey        `gorm:"foreignKey:UserID" json:"api_keys,omitempty"`
	OAuthIdentities []OAuthIdentity `gorm:"foreignKey:UserID" json:"oauth_identities,omitempty"`
}
