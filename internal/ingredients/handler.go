package ingredients

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"barbook/internal/auth"
	"barbook/internal/events"
	"barbook/pkg/database"
	"barbook/pkg/fuzzy"
	"barbook/pkg/models"
)

// ThresholdSource supplies the bar-wide search threshold.
type ThresholdSource interface {
	SearchThreshold(ctx context.Context) float64
}

type Handler struct {
	Repo      *Repo
	Events    events.Publisher
	Threshold ThresholdSource
	Log       *zap.Logger
}

func NewHandler(repo *Repo, pub events.Publisher, threshold ThresholdSource, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Repo: repo, Events: events.OrNop(pub), Threshold: threshold, Log: logger}
}

// RegisterRoutes expects rg to be behind AuthMiddleware. Writes need editor.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	editor := auth.RequireRole(models.RoleEditor)

	rg.GET("", h.list)
	rg.GET("/search", h.search)
	rg.GET("/:id", h.get)
	rg.POST("", editor, h.create)
	rg.PUT("/:id", editor, h.update)
	rg.DELETE("/:id", editor, h.delete)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Repo.List(c.Request.Context(), strings.TrimSpace(c.Query("category")))
	if err != nil {
		h.Log.Error("list ingredients", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}

func (h *Handler) search(c *gin.Context) {
	threshold := fuzzy.DefaultThreshold
	if h.Threshold != nil {
		threshold = h.Threshold.SearchThreshold(c.Request.Context())
	}
	if s := c.Query("threshold"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 || v > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be between 0 and 1"})
			return
		}
		threshold = v
	}
	limit := parseInt(c.Query("limit"), 10)
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	res, err := h.Repo.Search(c.Request.Context(), c.Query("q"), threshold, limit)
	if err != nil {
		h.Log.Error("search ingredients", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": c.Query("q"), "threshold": threshold, "items": res})
}

func (h *Handler) get(c *gin.Context) {
	ing, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if ing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, ing)
}

type ingredientReq struct {
	Name     string   `json:"name"`
	Aliases  []string `json:"aliases"`
	Category string   `json:"category"`
	ABV      *float64 `json:"abv"`
	Notes    string   `json:"notes"`
}

func (req ingredientReq) toModel() (models.Ingredient, string) {
	ing := models.Ingredient{
		Name:     strings.TrimSpace(req.Name),
		Aliases:  cleanAliases(req.Aliases),
		Category: strings.TrimSpace(req.Category),
		ABV:      req.ABV,
		Notes:    strings.TrimSpace(req.Notes),
	}
	if msg := ValidateName(ing.Name); msg != "" {
		return ing, msg
	}
	if ing.ABV != nil && (*ing.ABV < 0 || *ing.ABV > 100) {
		return ing, "abv must be between 0 and 100"
	}
	return ing, ""
}

func (h *Handler) create(c *gin.Context) {
	var req ingredientReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ing, msg := req.toModel()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	if err := h.Repo.Create(c.Request.Context(), &ing); err != nil {
		if errors.Is(err, database.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "ingredient already exists"})
			return
		}
		h.Log.Error("create ingredient", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	h.Events.Publish(events.New(events.EntityIngredient, "create", ing.ID, ing.Name))
	c.JSON(http.StatusCreated, ing)
}

func (h *Handler) update(c *gin.Context) {
	var req ingredientReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ing, msg := req.toModel()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	existing, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	ing.ID = existing.ID
	ing.CreatedAt = existing.CreatedAt

	if _, err := h.Repo.Update(c.Request.Context(), &ing); err != nil {
		if errors.Is(err, database.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "ingredient already exists"})
			return
		}
		h.Log.Error("update ingredient", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	h.Events.Publish(events.New(events.EntityIngredient, "update", ing.ID, ing.Name))
	c.JSON(http.StatusOK, ing)
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	found, err := h.Repo.Delete(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrInUse) {
			c.JSON(http.StatusConflict, gin.H{"error": "ingredient is used by a recipe"})
			return
		}
		h.Log.Error("delete ingredient", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.Events.Publish(events.New(events.EntityIngredient, "delete", id, ""))
	c.Status(http.StatusNoContent)
}

// ValidateName returns a user-facing message, or "" when name is usable.
func ValidateName(name string) string {
	switch {
	case name == "":
		return "name required"
	case len([]rune(name)) > 80:
		return "name must be at most 80 characters"
	}
	return ""
}

// cleanAliases trims, drops blanks and case-insensitive duplicates.
func cleanAliases(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, a := range in {
		a = strings.TrimSpace(a)
		key := strings.ToLower(a)
		if a == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
