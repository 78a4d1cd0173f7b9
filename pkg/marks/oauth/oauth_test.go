package oauth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/marksapp/marks/pkg/marks/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func TestKindMetadata(t *testing.T) {
	google := KindMetadata(models.ProviderGoogle)
	if google.Label != "Continue with Google" {
		t.Errorf("Unexpected google label: %s", google.Label)
	}
	if google.AuthParams["access_type"] != "offline" || google.AuthParams["prompt"] != "consent" {
		t.Errorf("Expected google offline access params, got %v", google.AuthParams)
	}

	github := KindMetadata(models.ProviderGithub)
	if github.Label != "Continue with GitHub" {
		t.Errorf("Unexpected github label: %s", github.Label)
	}
	if len(github.AuthParams) != 0 {
		t.Errorf("Expected no extra params for github, got %v", github.AuthParams)
	}

	// Unknown kinds fall back to generic metadata
	unknown := KindMetadata(models.ProviderKind("gitlab"))
	if unknown.Label == "" || unknown.Icon == "" {
		t.Errorf("Expected generic fallback metadata, got %+v", unknown)
	}
}

func TestStateRoundTrip(t *testing.T) {
	in := StateData{
		ProviderID: 7,
		ReturnURL:  "https://app.example.com/done",
		Nonce:      "abc123",
	}

	out, err := DecodeState(EncodeState(in))
	if err != nil {
		t.Fatalf("DecodeState failed: %v", err)
	}
	if out != in {
		t.Errorf("Expected %+v, got %+v", in, out)
	}
}

func TestDecodeStateRejectsGarbage(t *testing.T) {
	if _, err := DecodeState("not-base64!!!"); err == nil {
		t.Error("Expected error for invalid base64")
	}
	if _, err := DecodeState("bm90LWpzb24"); err == nil {
		t.Error("Expected error for non-JSON payload")
	}
}

func TestListProviders(t *testing.T) {
	db := setupTestDB(t)

	// Unroutable issuers so discovery fails fast without the network
	db.Create(&models.OAuthProvider{
		Kind:     models.ProviderGoogle,
		Slug:     "google",
		Issuer:   "http://127.0.0.1:1",
		ClientID: "client",
		Enabled:  true,
	})
	db.Create(&models.OAuthProvider{
		Kind:     models.ProviderGithub,
		Slug:     "github",
		Issuer:   "http://127.0.0.1:1",
		ClientID: "client",
		Enabled:  false,
	})

	gin.SetMode(gin.TestMode)
	r := gin.New()
	// Discovery against the fake issuers fails; the handler logs and serves
	// the provider list from the database regardless.
	handler := NewHandler(db, "http://localhost:8080")
	handler.RegisterRoutes(r.Group("/api/oauth"))

	req, _ := http.NewRequest("GET", "/api/oauth/providers", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var providers []ProviderResponse
	json.Unmarshal(resp.Body.Bytes(), &providers)

	if len(providers) != 1 {
		t.Fatalf("Expected 1 enabled provider, got %d", len(providers))
	}
	if providers[0].Slug != "google" || providers[0].Label != "Continue with Google" {
		t.Errorf("Unexpected provider response: %+v", providers[0])
	}
}

func TestGetAuthURLUnknownProvider(t *testing.T) {
	db := setupTestDB(t)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db, "http://localhost:8080")
	handler.RegisterRoutes(r.Group("/api/oauth"))

	req, _ := http.NewRequest("POST", "/api/oauth/providers/nope/authurl", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}
