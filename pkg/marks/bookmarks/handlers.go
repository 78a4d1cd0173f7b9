package bookmarks

import (
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marksapp/marks/pkg/marks/auth"
	"github.com/marksapp/marks/pkg/marks/feed"
	"github.com/marksapp/marks/pkg/marks/models"
	"gorm.io/gorm"
)

// Handler handles bookmark requests
type Handler struct {
	db     *gorm.DB
	broker feed.Broker
}

// NewHandler creates a new bookmarks handler
func NewHandler(db *gorm.DB, broker feed.Broker) *Handler {
	return &Handler{db: db, broker: broker}
}

// CreateBookmarkRequest represents the request to create a bookmark
type CreateBookmarkRequest struct {
	Title string `json:"title" binding:"required"`
	URL   string `json:"url" binding:"required,url"`
}

// BookmarkResponse represents a bookmark in API responses
type BookmarkResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	OwnerID   uint      `json:"owner_id"`
}

func bookmarkToResponse(b models.Bookmark) BookmarkResponse {
	return BookmarkResponse{
		ID:        b.ID,
		Title:     b.Title,
		URL:       b.URL,
		CreatedAt: b.CreatedAt,
		OwnerID:   b.OwnerID,
	}
}

// validateURL checks the url parses as an absolute URL with a host
func validateURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}

// List returns the caller's bookmarks, newest first
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	query := h.db.Where("owner_id = ?", userID).Order("created_at DESC, id DESC")

	// Optional substring search over title and url
	if q := c.Query("q"); q != "" {
		searchTerm := "%" + q + "%"
		query = query.Where("title LIKE ? OR url LIKE ?", searchTerm, searchTerm)
	}

	var bookmarks []models.Bookmark
	if err := query.Find(&bookmarks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bookmarks"})
		return
	}

	responses := make([]BookmarkResponse, len(bookmarks))
	for i, b := range bookmarks {
		responses[i] = bookmarkToResponse(b)
	}

	c.JSON(http.StatusOK, responses)
}

// Create inserts a new bookmark for the caller and publishes the insert
// event to the change feed
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateBookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}
	if !validateURL(req.URL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL must be a valid absolute URL"})
		return
	}

	bookmark := models.Bookmark{
		OwnerID: userID,
		Title:   title,
		URL:     req.URL,
	}

	if err := h.db.Create(&bookmark).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create bookmark"})
		return
	}

	// The row is committed; notify this owner's open sessions
	if err := h.broker.Publish(c.Request.Context(), userID, feed.InsertEvent(bookmark)); err != nil {
		log.Printf("bookmarks: failed to publish insert event for %s: %v", bookmark.ID, err)
	}

	c.JSON(http.StatusCreated, bookmarkToResponse(bookmark))
}

// Delete removes a bookmark owned by the caller and publishes the delete
// event to the change feed
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id := c.Param("id")

	var bookmark models.Bookmark
	if err := h.db.Where("id = ? AND owner_id = ?", id, userID).First(&bookmark).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bookmark not found"})
		return
	}

	if err := h.db.Delete(&bookmark).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete bookmark"})
		return
	}

	if err := h.broker.Publish(c.Request.Context(), userID, feed.DeleteEvent(bookmark.ID)); err != nil {
		log.Printf("bookmarks: failed to publish delete event for %s: %v", bookmark.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Bookmark deleted"})
}

// RegisterRoutes registers bookmark routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/bookmarks", h.List)
	rg.POST("/bookmarks", h.Create)
	rg.DELETE("/bookmarks/:id", h.Delete)

	rg.GET("/bookmarks/export", h.Export)
	rg.POST("/bookmarks/import", h.Import)
}
