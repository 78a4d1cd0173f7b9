package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/marksapp/marks/pkg/marks/apikeys"
	"github.com/marksapp/marks/pkg/marks/auth"
	"github.com/marksapp/marks/pkg/marks/bookmarks"
	"github.com/marksapp/marks/pkg/marks/database"
	"github.com/marksapp/marks/pkg/marks/feed"
	"github.com/marksapp/marks/pkg/marks/models"
	"github.com/marksapp/marks/pkg/marks/oauth"
	"gorm.io/gorm"
)

func main() {
	// Get database path from environment or use default
	dbPath := os.Getenv("MARKS_DB_PATH")
	if dbPath == "" {
		dbPath = "marks.db"
	}

	// Connect to database
	db, err := database.Connect(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Seed OAuth providers from environment so sign-in works out of the box
	if err := seedProvidersFromEnv(db); err != nil {
		log.Fatalf("Failed to seed OAuth providers: %v", err)
	}

	// Get base URL from environment or use default
	baseURL := os.Getenv("MARKS_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	// Change feed broker: redis when configured, in-process otherwise
	var broker feed.Broker
	if addr := os.Getenv("MARKS_REDIS_ADDR"); addr != "" {
		broker, err = feed.NewRedisBroker(context.Background(), addr)
		if err != nil {
			log.Fatalf("Failed to connect to redis at %s: %v", addr, err)
		}
		log.Printf("Using redis change feed broker at %s", addr)
	} else {
		broker = feed.NewMemoryBroker()
		log.Println("Using in-memory change feed broker")
	}
	defer broker.Close()

	// Set up Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"service": "marks",
			})
		})

		// Auth routes (public)
		authHandler := auth.NewHandler(db)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Combined auth middleware (accepts JWT or API key)
		combinedAuth := apikeys.CombinedAuthMiddleware(db)

		// API keys routes (JWT only - need to be logged in to manage keys)
		apiKeysHandler := apikeys.NewHandler(db)
		apiKeysHandler.RegisterRoutes(api.Group("", auth.AuthMiddleware()))

		// Bookmarks routes (protected - accepts JWT or API key)
		bookmarksHandler := bookmarks.NewHandler(db, broker)
		bookmarksHandler.RegisterRoutes(api.Group("", combinedAuth))

		// Change feed websocket (authenticates its own token parameter)
		feedHandler := feed.NewHandler(db, broker)
		feedHandler.RegisterRoutes(api.Group(""))

		// OAuth routes
		oauthHandler := oauth.NewHandler(db, baseURL)
		oauthHandler.RegisterRoutes(api.Group("/oauth"))
	}

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting marks server on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// seedProvidersFromEnv upserts OAuth providers configured through environment
// variables. A provider is seeded when its client id and secret are set; an
// existing row with the same slug keeps its id so linked identities survive
// restarts.
func seedProvidersFromEnv(db *gorm.DB) error {
	seeds := []struct {
		kind          models.ProviderKind
		slug          string
		defaultIssuer string
		envPrefix     string
	}{
		{models.ProviderGoogle, "google", "https://accounts.google.com", "MARKS_GOOGLE"},
		{models.ProviderGithub, "github", "", "MARKS_GITHUB"},
		{models.ProviderGeneric, "sso", "", "MARKS_OIDC"},
	}

	for _, seed := range seeds {
		clientID := os.Getenv(seed.envPrefix + "_CLIENT_ID")
		clientSecret := os.Getenv(seed.envPrefix + "_CLIENT_SECRET")
		if clientID == "" || clientSecret == "" {
			continue
		}

		issuer := os.Getenv(seed.envPrefix + "_ISSUER")
		if issuer == "" {
			issuer = seed.defaultIssuer
		}
		if issuer == "" {
			log.Printf("Skipping %s provider: no issuer configured", seed.slug)
			continue
		}

		var provider models.OAuthProvider
		err := db.Where("slug = ?", seed.slug).First(&provider).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}

		provider.Kind = seed.kind
		provider.Slug = seed.slug
		provider.Issuer = issuer
		provider.ClientID = clientID
		provider.ClientSecret = clientSecret
		provider.Enabled = true
		provider.AutoProvision = true

		if err := db.Save(&provider).Error; err != nil {
			return err
		}
		log.Printf("Seeded OAuth provider: %s (%s)", seed.slug, issuer)
	}

	return nil
}
