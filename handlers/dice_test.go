package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/docgate/docgate/internal/document"
	"github.com/docgate/docgate/internal/document/repository"
	"github.com/docgate/docgate/internal/document/service"
	"github.com/docgate/docgate/internal/rules"
)

func newDiceRouter(t *testing.T) (*gin.Engine, repository.Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := repository.NewMemoryRepo()
	svc := service.New(repo, rules.Default())
	g := gin.New()
	g.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-UID"); uid != "" {
			c.Set("claims", map[string]interface{}{"sub": uid})
		}
		c.Next()
	})
	RegisterDiceRoutes(g, svc)
	return g, repo
}

func TestDiceRollRequiresSignIn(t *testing.T) {
	g, _ := newDiceRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/dice", nil)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestDiceRollPersistsForOwner(t *testing.T) {
	g, repo := newDiceRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/dice", nil)
	req.Header.Set("X-Test-UID", "alice")
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		ID    string `json:"id"`
		Value int    `json:"value"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	require.GreaterOrEqual(t, resp.Value, 1)
	require.LessOrEqual(t, resp.Value, 6)

	d, err := repo.Get(context.Background(), "diceRolls", resp.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", d.Fields["uid"])
}

func TestAdminExportGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := repository.NewMemoryRepo()
	require.NoError(t, repo.Set(context.Background(), &document.Document{
		Collection: "users", ID: "root",
		Fields: map[string]interface{}{"isAdmin": true},
	}))

	h := NewAdminHandler(repo, nil)
	g := gin.New()
	g.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-UID"); uid != "" {
			c.Set("claims", map[string]interface{}{"sub": uid})
		}
		c.Next()
	})
	h.Register(g.Group("/api"))

	// not signed in
	req := httptest.NewRequest(http.MethodPost, "/api/admin/export/comments", nil)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	// signed in but not flagged
	req = httptest.NewRequest(http.MethodPost, "/api/admin/export/comments", nil)
	req.Header.Set("X-Test-UID", "alice")
	w = httptest.NewRecorder()
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	// admin reaches the exporter, which is not configured here
	req = httptest.NewRequest(http.MethodPost, "/api/admin/export/comments", nil)
	req.Header.Set("X-Test-UID", "root")
	w = httptest.NewRecorder()
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotImplemented, w.Code)
}
