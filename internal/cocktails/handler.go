package cocktails

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
	rg.GET("/:id", h.get)
	rg.POST("", editor, h.create)
	rg.PUT("/:id", editor, h.update)
	rg.DELETE("/:id", editor, h.delete)
	rg.POST("/:id/duplicate", editor, h.duplicate)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Q:         c.Query("q"),
		Tag:       c.Query("tag"),
		Glass:     c.Query("glass"),
		Threshold: fuzzy.DefaultThreshold,
	}
	if h.Threshold != nil {
		q.Threshold = h.Threshold.SearchThreshold(c.Request.Context())
	}

	// ingredient=lime&ingredient=gin OR ingredient=lime,gin
	for _, v := range c.QueryArray("ingredient") {
		q.Ingredients = append(q.Ingredients, strings.Split(v, ",")...)
	}

	switch strings.ToLower(c.DefaultQuery("match", "all")) {
	case "all":
	case "any":
		q.MatchAny = true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "match must be all or any"})
		return
	}

	if s := c.Query("active"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "active must be true or false"})
			return
		}
		q.Active = &v
	}

	limit := parseInt(c.Query("limit"), 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := max(parseInt(c.Query("offset"), 0), 0)

	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		h.Log.Error("list cocktails", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	total := len(items)
	page := items[min(offset, total):min(offset+limit, total)]
	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  page,
	})
}

func (h *Handler) get(c *gin.Context) {
	ct, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if ct == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, ct)
}

type lineReq struct {
	IngredientID   string  `json:"ingredient_id"`
	IngredientName string  `json:"ingredient_name"`
	Amount         float64 `json:"amount"`
	Unit           string  `json:"unit"`
	Notes          string  `json:"notes"`
}

type cocktailReq struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Method      string    `json:"method"`
	Glass       string    `json:"glass"`
	Garnish     string    `json:"garnish"`
	Tags        []string  `json:"tags"`
	Notes       string    `json:"notes"`
	Active      *bool     `json:"active"`
	Lines       []lineReq `json:"lines"`
}

func (req cocktailReq) toModel() (models.Cocktail, string) {
	ct := models.Cocktail{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Method:      strings.TrimSpace(req.Method),
		Glass:       strings.TrimSpace(req.Glass),
		Garnish:     strings.TrimSpace(req.Garnish),
		Tags:        CleanTags(req.Tags),
		Notes:       strings.TrimSpace(req.Notes),
		Active:      req.Active == nil || *req.Active,
		Lines:       make([]models.RecipeLine, 0, len(req.Lines)),
	}
	for _, l := range req.Lines {
		ct.Lines = append(ct.Lines, models.RecipeLine{
			IngredientID:   strings.TrimSpace(l.IngredientID),
			IngredientName: strings.TrimSpace(l.IngredientName),
			Amount:         l.Amount,
			Unit:           strings.TrimSpace(l.Unit),
			Notes:          strings.TrimSpace(l.Notes),
		})
	}
	return ct, Validate(ct)
}

// Validate returns a user-facing message, or "" when c can be stored.
func Validate(c models.Cocktail) string {
	switch {
	case c.Name == "":
		return "name required"
	case len([]rune(c.Name)) > 120:
		return "name must be at most 120 characters"
	}
	for i, l := range c.Lines {
		if l.IngredientID == "" && l.IngredientName == "" {
			return "line " + strconv.Itoa(i+1) + ": ingredient required"
		}
		if l.Amount < 0 {
			return "line " + strconv.Itoa(i+1) + ": amount must not be negative"
		}
	}
	return ""
}

// CleanTags lowercases, trims and dedupes tags, keeping first-seen order.
func CleanTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func (h *Handler) create(c *gin.Context) {
	var req cocktailReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ct, msg := req.toModel()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	if err := h.Repo.Create(c.Request.Context(), &ct); err != nil {
		h.writeErr(c, "create", err)
		return
	}

	h.Events.Publish(events.New(events.EntityCocktail, "create", ct.ID, ct.Name))
	c.JSON(http.StatusCreated, ct)
}

func (h *Handler) update(c *gin.Context) {
	var req cocktailReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ct, msg := req.toModel()
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
	ct.ID = existing.ID
	ct.CreatedAt = existing.CreatedAt

	if _, err := h.Repo.Update(c.Request.Context(), &ct); err != nil {
		h.writeErr(c, "update", err)
		return
	}

	h.Events.Publish(events.New(events.EntityCocktail, "update", ct.ID, ct.Name))
	c.JSON(http.StatusOK, ct)
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	found, err := h.Repo.Delete(c.Request.Context(), id)
	if err != nil {
		h.writeErr(c, "delete", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.Events.Publish(events.New(events.EntityCocktail, "delete", id, ""))
	c.Status(http.StatusNoContent)
}

func (h *Handler) duplicate(c *gin.Context) {
	ct, err := h.Repo.Duplicate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeErr(c, "duplicate", err)
		return
	}
	if ct == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.Events.Publish(events.New(events.EntityCocktail, "create", ct.ID, ct.Name))
	c.JSON(http.StatusCreated, ct)
}

func (h *Handler) writeErr(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrUnknownIngredient):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "cocktail already exists"})
	default:
		h.Log.Error(op+" cocktail", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
	}
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
