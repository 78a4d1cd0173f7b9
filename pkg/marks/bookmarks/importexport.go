package bookmarks

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marksapp/marks/pkg/marks/auth"
	"github.com/marksapp/marks/pkg/marks/feed"
	"github.com/marksapp/marks/pkg/marks/models"
)

// PortableBookmark represents a bookmark in Pinboard-style JSON format,
// the lingua franca of bookmark import/export tools
type PortableBookmark struct {
	Href        string `json:"href"`
	Description string `json:"description"`
	Time        string `json:"time"`
}

// ImportRequest represents an import request
type ImportRequest struct {
	Bookmarks []PortableBookmark `json:"bookmarks" binding:"required"`
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Export returns all of the caller's bookmarks in portable format
func (h *Handler) Export(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var bookmarks []models.Bookmark
	if err := h.db.Where("owner_id = ?", userID).Order("created_at DESC").Find(&bookmarks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bookmarks"})
		return
	}

	exported := make([]PortableBookmark, len(bookmarks))
	for i, b := range bookmarks {
		exported[i] = PortableBookmark{
			Href:        b.URL,
			Description: b.Title,
			Time:        b.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, exported)
}

// Import creates bookmarks from portable format, skipping rows the caller
// already has and rows that fail validation
func (h *Handler) Import(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := ImportResult{}
	for i, pb := range req.Bookmarks {
		title := strings.TrimSpace(pb.Description)
		if title == "" {
			title = pb.Href
		}
		if !validateURL(pb.Href) {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("entry %d: invalid url %q", i, pb.Href))
			continue
		}

		// Skip urls the caller already saved
		var count int64
		h.db.Model(&models.Bookmark{}).Where("owner_id = ? AND url = ?", userID, pb.Href).Count(&count)
		if count > 0 {
			result.Skipped++
			continue
		}

		bookmark := models.Bookmark{
			OwnerID: userID,
			Title:   title,
			URL:     pb.Href,
		}
		if err := h.db.Create(&bookmark).Error; err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("entry %d: %v", i, err))
			continue
		}

		if err := h.broker.Publish(c.Request.Context(), userID, feed.InsertEvent(bookmark)); err != nil {
			log.Printf("bookmarks: failed to publish insert event for %s: %v", bookmark.ID, err)
		}
		result.Imported++
	}

	c.JSON(http.StatusOK, result)
}
