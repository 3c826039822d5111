package handlers

import (
	"errors"
	"math/rand"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docgate/docgate/internal/document"
	"github.com/docgate/docgate/internal/document/service"
	"github.com/docgate/docgate/pkg/middleware"
)

const diceCollection = "diceRolls"

// RegisterDiceRoutes exposes the demo dice roller. Each roll is persisted
// through the rule-enforced store, so an unauthenticated roll is denied the
// same way a direct document write would be.
func RegisterDiceRoutes(r gin.IRoutes, svc service.Service) {
	r.POST("/api/dice", func(c *gin.Context) {
		uid := middleware.RequesterUID(c)
		value := rand.Intn(6) + 1
		id, err := svc.Add(c.Request.Context(), service.Identity{UID: uid}, diceCollection, map[string]interface{}{
			"uid":   uid,
			"value": value,
		})
		if err != nil {
			if errors.Is(err, document.ErrPermissionDenied) {
				c.JSON(http.StatusForbidden, gin.H{"error": "sign in to roll"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id, "value": value})
	})
}
