package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bookmark represents one saved link belonging to a single owner.
// The ID is an opaque UUID assigned by the store at insertion time;
// callers never supply it.
type Bookmark struct {
	ID        string         `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	OwnerID   uint           `gorm:"not null;index" json:"owner_id"`
	Title     string         `gorm:"not null" json:"title"`
	URL       string         `gorm:"not null" json:"url"`

	// Relationships
	Owner User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

// BeforeCreate assigns the opaque record id
func (b *Bookmark) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
