package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/marksapp/marks/pkg/marks/auth"
	"github.com/marksapp/marks/pkg/marks/models"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// Handler handles OAuth sign-in requests
type Handler struct {
	db        *gorm.DB
	baseURL   string
	providers map[uint]*providerConfig
	mu        sync.RWMutex
}

type providerConfig struct {
	provider *oidc.Provider
	config   oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// StateData stores OAuth state for validation across the redirect
type StateData struct {
	ProviderID uint   `json:"provider_id"`
	ReturnURL  string `json:"return_url"`
	Nonce      string `json:"nonce"`
}

// NewHandler creates a new OAuth handler and initializes all enabled providers
func NewHandler(db *gorm.DB, baseURL string) *Handler {
	h := &Handler{
		db:        db,
		baseURL:   baseURL,
		providers: make(map[uint]*providerConfig),
	}
	h.loadProviders()
	return h
}

// loadProviders loads all enabled providers from the database
func (h *Handler) loadProviders() {
	var providers []models.OAuthProvider
	h.db.Where("enabled = ?", true).Find(&providers)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, p := range providers {
		if err := h.initProvider(p); err != nil {
			log.Printf("oauth: skipping provider %s: %v", p.Slug, err)
			continue
		}
	}
}

// initProvider runs OIDC discovery against the provider's issuer
func (h *Handler) initProvider(p models.OAuthProvider) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	provider, err := oidc.NewProvider(ctx, p.Issuer)
	if err != nil {
		return err
	}

	scopes := strings.Fields(p.Scopes)
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	config := oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  h.baseURL + "/api/oauth/callback",
		Scopes:       scopes,
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: p.ClientID})

	h.providers[p.ID] = &providerConfig{
		provider: provider,
		config:   config,
		verifier: verifier,
	}

	return nil
}

// ProviderResponse represents a sign-in option in API responses
type ProviderResponse struct {
	ID    uint                `json:"id"`
	Kind  models.ProviderKind `json:"kind"`
	Slug  string              `json:"slug"`
	Label string              `json:"label"`
	Icon  string              `json:"icon"`
}

// ListProviders returns all enabled providers with their display metadata
// (public endpoint)
func (h *Handler) ListProviders(c *gin.Context) {
	var providers []models.OAuthProvider
	h.db.Where("enabled = ?", true).Find(&providers)

	responses := make([]ProviderResponse, len(providers))
	for i, p := range providers {
		meta := KindMetadata(p.Kind)
		responses[i] = ProviderResponse{
			ID:    p.ID,
			Kind:  p.Kind,
			Slug:  p.Slug,
			Label: meta.Label,
			Icon:  meta.Icon,
		}
	}

	c.JSON(http.StatusOK, responses)
}

// AuthURLRequest represents a request for an auth URL
type AuthURLRequest struct {
	ReturnURL string `json:"return_url"`
}

func generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// GetAuthURL returns the authorization URL for a provider, including the
// kind's extra authorization parameters
func (h *Handler) GetAuthURL(c *gin.Context) {
	slug := c.Param("slug")

	var provider models.OAuthProvider
	if err := h.db.Where("slug = ? AND enabled = ?", slug, true).First(&provider).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Provider not found"})
		return
	}

	h.mu.RLock()
	pc, ok := h.providers[provider.ID]
	h.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Provider not configured"})
		return
	}

	var req AuthURLRequest
	c.ShouldBindJSON(&req)

	// Generate state with provider ID and return URL
	nonce := generateNonce()
	stateData := StateData{
		ProviderID: provider.ID,
		ReturnURL:  req.ReturnURL,
		Nonce:      nonce,
	}
	state := EncodeState(stateData)

	opts := []oauth2.AuthCodeOption{oidc.Nonce(nonce)}
	for k, v := range KindMetadata(provider.Kind).AuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}

	authURL := pc.config.AuthCodeURL(state, opts...)

	c.JSON(http.StatusOK, gin.H{"auth_url": authURL})
}

// EncodeState serializes state data for the authorization redirect
func EncodeState(data StateData) string {
	stateJSON, _ := json.Marshal(data)
	return base64.URLEncoding.EncodeToString(stateJSON)
}

// DecodeState parses state data returned by the provider
func DecodeState(state string) (StateData, error) {
	var data StateData
	stateJSON, err := base64.URLEncoding.DecodeString(state)
	if err != nil {
		return data, err
	}
	if err := json.Unmarshal(stateJSON, &data); err != nil {
		return data, err
	}
	return data, nil
}

// Callback handles the OAuth callback: exchanges the code, verifies the ID
// token, finds or creates the user, and hands back a session token
func (h *Handler) Callback(c *gin.Context) {
	stateData, err := DecodeState(c.Query("state"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state"})
		return
	}

	h.mu.RLock()
	pc, ok := h.providers[stateData.ProviderID]
	h.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown provider"})
		return
	}

	code := c.Query("code")
	if code == "" {
		errorDesc := c.Query("error_description")
		if errorDesc == "" {
			errorDesc = c.Query("error")
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Authentication failed: " + errorDesc})
		return
	}

	ctx := c.Request.Context()
	oauth2Token, err := pc.config.Exchange(ctx, code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to exchange token"})
		return
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No ID token in response"})
		return
	}

	idToken, err := pc.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify ID token"})
		return
	}

	if idToken.Nonce != stateData.Nonce {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid nonce"})
		return
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse claims"})
		return
	}

	if claims.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email not provided by identity provider"})
		return
	}

	var provider models.OAuthProvider
	h.db.First(&provider, stateData.ProviderID)

	user, err := h.findOrCreateUser(idToken.Subject, claims.Email, claims.Name, &provider)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process user: " + err.Error()})
		return
	}

	if !user.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "User account is deactivated"})
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	// Redirect with token or return JSON based on return URL
	if stateData.ReturnURL != "" {
		redirectURL := stateData.ReturnURL + "?token=" + token
		c.Redirect(http.StatusFound, redirectURL)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": auth.UserResponse{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
		},
	})
}

// findOrCreateUser finds an existing user or creates a new one
func (h *Handler) findOrCreateUser(subject, email, name string, provider *models.OAuthProvider) (*models.User, error) {
	// First, check if we have an identity link
	var identity models.OAuthIdentity
	err := h.db.Where("provider_id = ? AND subject = ?", provider.ID, subject).First(&identity).Error

	if err == nil {
		var user models.User
		if err := h.db.First(&user, identity.UserID).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}

	// No identity link, check if user exists by email
	var user models.User
	err = h.db.Where("email = ?", email).First(&user).Error

	if err == nil {
		// User exists, create identity link
		identity := models.OAuthIdentity{
			UserID:     user.ID,
			ProviderID: provider.ID,
			Subject:    subject,
			Email:      email,
		}
		h.db.Create(&identity)
		return &user, nil
	}

	if !provider.AutoProvision {
		return nil, err
	}

	if name == "" {
		name = strings.Split(email, "@")[0]
	}

	user = models.User{
		Email:  email,
		Name:   name,
		Active: true,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		identity := models.OAuthIdentity{
			UserID:     user.ID,
			ProviderID: provider.ID,
			Subject:    subject,
			Email:      email,
		}
		return tx.Create(&identity).Error
	})

	if err != nil {
		return nil, err
	}

	return &user, nil
}

// RegisterRoutes registers OAuth routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/providers", h.ListProviders)
	rg.POST("/providers/:slug/authurl", h.GetAuthURL)
	rg.GET("/callback", h.Callback)
}
