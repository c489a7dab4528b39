package catalog

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"barbook/internal/auth"
	"barbook/internal/events"
	"barbook/pkg/database"
	"barbook/pkg/models"
)

type Handler struct {
	Repo   *Repo
	Events events.Publisher
	Log    *zap.Logger
}

func NewHandler(repo *Repo, pub events.Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Repo: repo, Events: events.OrNop(pub), Log: logger}
}

// RegisterRoutes expects rg to be behind AuthMiddleware. Writes need editor.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	editor := auth.RequireRole(models.RoleEditor)

	rg.GET("", h.list)
	rg.POST("", editor, h.add)
	rg.PUT("/order", editor, h.reorder)
	rg.PATCH("/:id", editor, h.update)
	rg.DELETE("/:id", editor, h.remove)
}

func (h *Handler) list(c *gin.Context) {
	all := c.Query("all") == "true"
	if all {
		if claims := auth.MustGetClaims(c); claims == nil || !claims.Role.Allows(models.RoleEditor) {
			c.JSON(http.StatusForbidden, gin.H{"error": "requires editor role"})
			return
		}
	}

	items, err := h.Repo.List(c.Request.Context(), all)
	if err != nil {
		h.Log.Error("list catalog", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":    len(items),
		"items":    items,
		"sections": Sections(items),
	})
}

type addReq struct {
	CocktailID string `json:"cocktail_id"`
	Section    string `json:"section"`
	Visible    *bool  `json:"visible"`
	PriceCents *int   `json:"price_cents"`
}

func (h *Handler) add(c *gin.Context) {
	var req addReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.CocktailID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cocktail_id required"})
		return
	}
	if req.PriceCents != nil && *req.PriceCents < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must not be negative"})
		return
	}

	it := models.CatalogItem{
		CocktailID: strings.TrimSpace(req.CocktailID),
		Section:    strings.TrimSpace(req.Section),
		Visible:    req.Visible == nil || *req.Visible,
		PriceCents: req.PriceCents,
	}
	if err := h.Repo.Add(c.Request.Context(), &it); err != nil {
		switch {
		case errors.Is(err, database.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "cocktail is already on the menu"})
		case errors.Is(err, database.ErrInUse):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown cocktail"})
		default:
			h.Log.Error("add catalog item", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "add failed"})
		}
		return
	}

	h.Events.Publish(events.New(events.EntityCatalog, "create", it.ID, it.CocktailName))
	c.JSON(http.StatusCreated, it)
}

type patchReq struct {
	Section    *string `json:"section"`
	Visible    *bool   `json:"visible"`
	PriceCents *int    `json:"price_cents"`
	ClearPrice bool    `json:"clear_price"`
}

func (h *Handler) update(c *gin.Context) {
	var req patchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.PriceCents != nil && *req.PriceCents < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must not be negative"})
		return
	}
	if req.Section != nil {
		s := strings.TrimSpace(*req.Section)
		req.Section = &s
	}

	it, err := h.Repo.Update(c.Request.Context(), c.Param("id"), Patch(req))
	if err != nil {
		h.Log.Error("update catalog item", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if it == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.Events.Publish(events.New(events.EntityCatalog, "update", it.ID, it.CocktailName))
	c.JSON(http.StatusOK, it)
}

func (h *Handler) remove(c *gin.Context) {
	id := c.Param("id")
	found, err := h.Repo.Remove(c.Request.Context(), id)
	if err != nil {
		h.Log.Error("remove catalog item", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.Events.Publish(events.New(events.EntityCatalog, "delete", id, ""))
	c.Status(http.StatusNoContent)
}

type reorderReq struct {
	IDs []string `json:"ids"`
}

func (h *Handler) reorder(c *gin.Context) {
	var req reorderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if err := h.Repo.Reorder(c.Request.Context(), req.IDs); err != nil {
		if errors.Is(err, ErrNotPermutation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.Log.Error("reorder catalog", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reorder failed"})
		return
	}

	h.Events.Publish(events.New(events.EntityCatalog, "reorder", "", ""))
	items, err := h.Repo.List(c.Request.Context(), true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}
