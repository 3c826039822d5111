package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docgate/docgate/internal/document/repository"
	"github.com/docgate/docgate/internal/storage"
	"github.com/docgate/docgate/pkg/logger"
	"github.com/docgate/docgate/pkg/middleware"
)

// AdminHandler serves operator-only endpoints. Admin status is the same flag
// document ownership rules consult: users/{uid} with isAdmin == true.
type AdminHandler struct {
	repo      repository.Repository
	snapshots *storage.SnapshotStore
}

func NewAdminHandler(repo repository.Repository, snapshots *storage.SnapshotStore) *AdminHandler {
	return &AdminHandler{repo: repo, snapshots: snapshots}
}

// Register mounts the admin routes; callers wrap them in the strict auth
// middleware so only verified tokens reach the admin check.
func (h *AdminHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/admin")
	a.POST("/export/:collection", h.ExportCollection)
}

// ExportCollection snapshots an entire collection to object storage and
// returns the object key. The read bypasses rules: that is exactly why the
// endpoint is gated on the admin flag.
func (h *AdminHandler) ExportCollection(c *gin.Context) {
	uid := middleware.RequesterUID(c)
	if !h.isAdmin(c, uid) {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}
	if h.snapshots == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "snapshot storage not configured"})
		return
	}
	collection := c.Param("collection")
	docs, err := h.repo.List(c.Request.Context(), collection, nil)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return
	}
	key, err := h.snapshots.ExportCollection(c.Request.Context(), collection, docs)
	if err != nil {
		logger.Errorf("collection export failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "count": len(docs)})
}

func (h *AdminHandler) isAdmin(c *gin.Context, uid string) bool {
	if uid == "" {
		return false
	}
	d, err := h.repo.Get(c.Request.Context(), "users", uid)
	if err != nil {
		return false
	}
	isAdmin, _ := d.Fields["isAdmin"].(bool)
	return isAdmin
}
