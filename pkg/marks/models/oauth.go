package models

import (
	"time"

	"gorm.io/gorm"
)

// ProviderKind tags an OAuth provider with its well-known variant.
// Display metadata (label, icon, extra authorization parameters) hangs
// off the kind rather than being dispatched on free-form strings.
type ProviderKind string

const (
	ProviderGoogle  ProviderKind = "google"
	ProviderGithub  ProviderKind = "github"
	ProviderGeneric ProviderKind = "generic"
)

// OAuthProvider represents an OAuth/OIDC identity provider configuration
type OAuthProvider struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	Kind          ProviderKind   `gorm:"type:varchar(20);not null" json:"kind"`
	Slug          string         `gorm:"uniqueIndex;not null" json:"slug"` // URL-safe identifier
	Issuer        string         `gorm:"not null" json:"issuer"`           // OIDC issuer URL
	ClientID      string         `gorm:"not null" json:"client_id"`
	ClientSecret  string         `gorm:"not null" json:"-"` // Never exposed in JSON
	Scopes        string         `gorm:"default:'openid profile email'" json:"scopes"`
	Enabled       bool           `gorm:"default:true" json:"enabled"`
	AutoProvision bool           `gorm:"default:true" json:"auto_provision"` // Auto-create users on first login
}

// OAuthIdentity links a user to an identity at a provider
type OAuthIdentity struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	ProviderID uint           `gorm:"not null;index" json:"provider_id"`
	Subject    string         `gorm:"not null" json:"subject"` // OIDC sub claim
	Email      string         `json:"email"`

	// Relationships
	User     User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Provider OAuthProvider `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
}
