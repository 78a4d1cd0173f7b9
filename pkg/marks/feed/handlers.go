package feed

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/marksapp/marks/pkg/marks/apikeys"
	"github.com/marksapp/marks/pkg/marks/auth"
	"gorm.io/gorm"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The socket is authenticated by token, not by origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler serves the websocket change feed
type Handler struct {
	db     *gorm.DB
	broker Broker
}

// NewHandler creates a new feed handler
func NewHandler(db *gorm.DB, broker Broker) *Handler {
	return &Handler{db: db, broker: broker}
}

// authenticate resolves the caller from a bearer header or, because browser
// websocket clients cannot set headers, a token query parameter. JWTs contain
// dots; API keys are hex strings without dots.
func (h *Handler) authenticate(c *gin.Context) (uint, bool) {
	token := c.Query("token")
	if token == "" {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			token = parts[1]
		}
	}
	if token == "" {
		return 0, false
	}

	if strings.Contains(token, ".") {
		claims, err := auth.ValidateToken(token)
		if err != nil {
			return 0, false
		}
		return claims.UserID, true
	}

	apiKey, err := apikeys.ValidateAPIKey(h.db, token)
	if err != nil {
		return 0, false
	}
	return apiKey.UserID, true
}

// Serve upgrades the connection and forwards the caller's change events
// until either side goes away
func (h *Handler) Serve(c *gin.Context) {
	userID, ok := h.authenticate(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("feed: upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	events, release, err := h.broker.Subscribe(c.Request.Context(), userID)
	if err != nil {
		log.Printf("feed: subscribe failed for user %d: %v", userID, err)
		return
	}
	defer release()

	// Forward broker events to the peer
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if err := ws.WriteJSON(ev); err != nil {
				log.Printf("feed: write to user %d failed: %v", userID, err)
				return
			}
		}
	}()

	// Drain the read side to detect disconnects; the feed is one-way
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	release()
	<-done
}

// RegisterRoutes registers the feed route
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/feed", h.Serve)
}
