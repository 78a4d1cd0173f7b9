package models

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	return db
}

func TestAutoMigrate(t *testing.T) {
	db := setupTestDB(t)

	err := AutoMigrate(db)
	if err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}

	tables := []string{"users", "bookmarks", "api_keys", "o_auth_providers", "o_auth_identities"}
	for _, table := range tables {
		if !db.Migrator().HasTable(table) {
			t.Errorf("Expected table %s to exist", table)
		}
	}
}

func TestUserModel(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	user := User{
		Email:        "test@example.com",
		PasswordHash: "hashed_password",
		Name:         "Test User",
	}

	result := db.Create(&user)
	if result.Error != nil {
		t.Fatalf("Failed to create user: %v", result.Error)
	}

	if user.ID == 0 {
		t.Error("Expected user ID to be set after create")
	}

	// Test unique email constraint
	user2 := User{
		Email:        "test@example.com",
		PasswordHash: "another_hash",
		Name:         "Another User",
	}
	result = db.Create(&user2)
	if result.Error == nil {
		t.Error("Expected error when creating user with duplicate email")
	}
}

func TestBookmarkIDAssignedOnCreate(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	user := User{Email: "owner@example.com", Name: "Owner"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	bookmark := Bookmark{
		OwnerID: user.ID,
		Title:   "Example",
		URL:     "https://example.com",
	}
	if err := db.Create(&bookmark).Error; err != nil {
		t.Fatalf("Failed to create bookmark: %v", err)
	}

	if bookmark.ID == "" {
		t.Error("Expected bookmark ID to be assigned by the store")
	}
	if bookmark.CreatedAt.IsZero() {
		t.Error("Expected created_at to be set")
	}

	// A second record gets a distinct id
	other := Bookmark{OwnerID: user.ID, Title: "Other", URL: "https://other.example.com"}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("Failed to create second bookmark: %v", err)
	}
	if other.ID == bookmark.ID {
		t.Error("Expected distinct bookmark ids")
	}
}

func TestOAuthProviderSlugUnique(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	provider := OAuthProvider{
		Kind:     ProviderGoogle,
		Slug:     "google",
		Issuer:   "https://accounts.google.com",
		ClientID: "client",
	}
	if err := db.Create(&provider).Error; err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	dup := OAuthProvider{
		Kind:     ProviderGeneric,
		Slug:     "google",
		Issuer:   "https://elsewhere.example.com",
		ClientID: "client2",
	}
	if err := db.Create(&dup).Error; err == nil {
		t.Error("Expected error when creating provider with duplicate slug")
	}
}
