package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/docgate/docgate/internal/document"
	"github.com/docgate/docgate/internal/document/service"
	"github.com/docgate/docgate/pkg/middleware"
)

// RegisterCollectionRoutes exposes the rule-enforced document store under
// /api/collections. The identity comes from the optional auth middleware:
// requests without a token run as the unauthenticated requester, which the
// rules treat as a legal (if rarely privileged) identity.
func RegisterCollectionRoutes(r gin.IRoutes, svc service.Service) {
	r.GET("/api/collections/:collection", func(c *gin.Context) {
		q := &document.Query{Filters: map[string]interface{}{}}
		for k, vs := range c.Request.URL.Query() {
			if k == "limit" {
				if n, err := strconv.Atoi(vs[0]); err == nil {
					q.Limit = n
				}
				continue
			}
			q.Filters[k] = vs[0]
		}
		docs, err := svc.List(c.Request.Context(), requester(c), c.Param("collection"), q)
		if err != nil {
			writeError(c, err)
			return
		}
		out := make([]gin.H, 0, len(docs))
		for _, d := range docs {
			out = append(out, gin.H{"id": d.ID, "fields": d.Fields, "createdAt": d.CreatedAt, "updatedAt": d.UpdatedAt})
		}
		c.JSON(http.StatusOK, gin.H{"documents": out})
	})

	r.POST("/api/collections/:collection", func(c *gin.Context) {
		var fields map[string]interface{}
		if err := c.ShouldBindJSON(&fields); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, err := svc.Add(c.Request.Context(), requester(c), c.Param("collection"), fields)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id})
	})

	r.GET("/api/collections/:collection/:id", func(c *gin.Context) {
		d, err := svc.Get(c.Request.Context(), requester(c), c.Param("collection"), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": d.ID, "fields": d.Fields, "createdAt": d.CreatedAt, "updatedAt": d.UpdatedAt})
	})

	r.PUT("/api/collections/:collection/:id", func(c *gin.Context) {
		var fields map[string]interface{}
		if err := c.ShouldBindJSON(&fields); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := svc.Set(c.Request.Context(), requester(c), c.Param("collection"), c.Param("id"), fields); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})

	r.PATCH("/api/collections/:collection/:id", func(c *gin.Context) {
		var fields map[string]interface{}
		if err := c.ShouldBindJSON(&fields); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := svc.Update(c.Request.Context(), requester(c), c.Param("collection"), c.Param("id"), fields); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})

	r.DELETE("/api/collections/:collection/:id", func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), requester(c), c.Param("collection"), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func requester(c *gin.Context) service.Identity {
	return service.Identity{UID: middleware.RequesterUID(c)}
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, document.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	case errors.Is(err, document.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, document.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
