package settings

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"barbook/internal/auth"
	"barbook/internal/events"
	"barbook/pkg/models"
)

type LayoutLookup interface {
	GetByID(ctx context.Context, id string) (*models.PrintLayout, error)
}

type Handler struct {
	Repo    *Repo
	Layouts LayoutLookup
	Events  events.Publisher
	Log     *zap.Logger
}

func NewHandler(repo *Repo, layouts LayoutLookup, pub events.Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Repo: repo, Layouts: layouts, Events: events.OrNop(pub), Log: logger}
}

// RegisterRoutes expects rg to be behind AuthMiddleware. Changes need admin.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.get)
	rg.PUT("", auth.RequireRole(models.RoleAdmin), h.update)
}

func (h *Handler) get(c *gin.Context) {
	s, err := h.Repo.Get(c.Request.Context())
	if err != nil {
		h.Log.Error("get settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) update(c *gin.Context) {
	var p Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if p.BarName != nil {
		name := strings.TrimSpace(*p.BarName)
		if name == "" || len([]rune(name)) > 80 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bar_name must be 1-80 characters"})
			return
		}
		p.BarName = &name
	}
	if p.SearchThreshold != nil && (*p.SearchThreshold < 0 || *p.SearchThreshold > 1) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "search_threshold must be between 0 and 1"})
		return
	}
	if p.DefaultLayoutID != nil && *p.DefaultLayoutID != "" && h.Layouts != nil {
		l, err := h.Layouts.GetByID(c.Request.Context(), *p.DefaultLayoutID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "layout lookup failed"})
			return
		}
		if l == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown layout"})
			return
		}
	}

	s, err := h.Repo.Update(c.Request.Context(), p)
	if err != nil {
		h.Log.Error("update settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	h.Events.Publish(events.New(events.EntitySettings, "update", "", s.BarName))
	c.JSON(http.StatusOK, s)
}
