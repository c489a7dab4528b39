package printcard

import (
	"bytes"
	"context"
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

type CocktailSource interface {
	GetByID(ctx context.Context, id string) (*models.Cocktail, error)
}

type SettingsSource interface {
	Get(ctx context.Context) (models.Settings, error)
}

const maxCardsPerPrint = 200

type Handler struct {
	Layouts   *Repo
	Cocktails CocktailSource
	Settings  SettingsSource
	Events    events.Publisher
	Log       *zap.Logger
}

func NewHandler(layouts *Repo, cocktails CocktailSource, settings SettingsSource, pub events.Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Layouts: layouts, Cocktails: cocktails, Settings: settings, Events: events.OrNop(pub), Log: logger}
}

// RegisterRoutes expects rg to be behind AuthMiddleware. Layout edits need
// editor; printing only needs viewer.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	editor := auth.RequireRole(models.RoleEditor)

	rg.GET("/layouts", h.listLayouts)
	rg.GET("/layouts/default", h.defaultLayout)
	rg.GET("/layouts/:id", h.getLayout)
	rg.POST("/layouts", editor, h.createLayout)
	rg.PUT("/layouts/:id", editor, h.updateLayout)
	rg.DELETE("/layouts/:id", editor, h.deleteLayout)
	rg.PATCH("/layouts/:id/fields/:key", editor, h.placeField)
	rg.DELETE("/layouts/:id/fields/:key", editor, h.removeField)

	rg.GET("/cocktails/:id", h.printOne)
	rg.POST("/cards", h.printMany)
}

func (h *Handler) listLayouts(c *gin.Context) {
	items, err := h.Layouts.List(c.Request.Context())
	if err != nil {
		h.Log.Error("list layouts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) defaultLayout(c *gin.Context) {
	c.JSON(http.StatusOK, DefaultLayout())
}

func (h *Handler) getLayout(c *gin.Context) {
	l, ok := h.loadLayout(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *Handler) loadLayout(c *gin.Context) (*models.PrintLayout, bool) {
	l, err := h.Layouts.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return nil, false
	}
	if l == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	return l, true
}

type layoutReq struct {
	Name         string                `json:"name"`
	PageWidthMM  float64               `json:"page_width_mm"`
	PageHeightMM float64               `json:"page_height_mm"`
	Fields       *[]models.LayoutField `json:"fields"`
}

// toModel fills page size and fields from DefaultLayout when omitted.
func (req layoutReq) toModel() models.PrintLayout {
	def := DefaultLayout()
	l := models.PrintLayout{
		Name:         strings.TrimSpace(req.Name),
		PageWidthMM:  req.PageWidthMM,
		PageHeightMM: req.PageHeightMM,
		Fields:       def.Fields,
	}
	if l.PageWidthMM == 0 && l.PageHeightMM == 0 {
		l.PageWidthMM, l.PageHeightMM = def.PageWidthMM, def.PageHeightMM
	}
	if req.Fields != nil {
		l.Fields = *req.Fields
	}
	for i := range l.Fields {
		l.Fields[i].Key = strings.ToLower(strings.TrimSpace(l.Fields[i].Key))
	}
	return l
}

func (h *Handler) createLayout(c *gin.Context) {
	var req layoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	l := req.toModel()
	if err := Validate(l); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Layouts.Create(c.Request.Context(), &l); err != nil {
		h.writeErr(c, "create", err)
		return
	}
	h.Events.Publish(events.New(events.EntityLayout, "create", l.ID, l.Name))
	c.JSON(http.StatusCreated, l)
}

func (h *Handler) updateLayout(c *gin.Context) {
	var req layoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	existing, ok := h.loadLayout(c)
	if !ok {
		return
	}

	l := req.toModel()
	if req.Fields == nil {
		l.Fields = existing.Fields
	}
	l.ID = existing.ID
	if err := Validate(l); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.save(c, &l)
}

type placeReq struct {
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	Width    float64  `json:"width"`
	FontSize float64  `json:"font_size"`
	Align    *string  `json:"align"`
	Bold     *bool    `json:"bold"`
}

// placeField is the drag-drop endpoint: it moves and resizes a field,
// adding it first when the layout doesn't show it yet.
func (h *Handler) placeField(c *gin.Context) {
	var req placeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	l, ok := h.loadLayout(c)
	if !ok {
		return
	}
	key := strings.ToLower(c.Param("key"))

	if fieldIndex(l, key) < 0 {
		if err := AddField(l, models.LayoutField{Key: key, Width: req.Width, FontSize: req.FontSize}); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else if _, err := ResizeField(l, key, req.Width, req.FontSize); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f := l.Fields[fieldIndex(l, key)]
	x, y := f.X, f.Y
	if req.X != nil {
		x = *req.X
	}
	if req.Y != nil {
		y = *req.Y
	}
	if _, err := MoveField(l, key, x, y); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	i := fieldIndex(l, key)
	if req.Align != nil {
		l.Fields[i].Align = *req.Align
	}
	if req.Bold != nil {
		l.Fields[i].Bold = *req.Bold
	}
	if err := Validate(*l); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.save(c, l)
}

func (h *Handler) removeField(c *gin.Context) {
	l, ok := h.loadLayout(c)
	if !ok {
		return
	}
	if err := RemoveField(l, strings.ToLower(c.Param("key"))); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.save(c, l)
}

func (h *Handler) save(c *gin.Context, l *models.PrintLayout) {
	found, err := h.Layouts.Update(c.Request.Context(), l)
	if err != nil {
		h.writeErr(c, "update", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.Events.Publish(events.New(events.EntityLayout, "update", l.ID, l.Name))
	c.JSON(http.StatusOK, l)
}

func (h *Handler) deleteLayout(c *gin.Context) {
	id := c.Param("id")
	found, err := h.Layouts.Delete(c.Request.Context(), id)
	if err != nil {
		h.writeErr(c, "delete", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.Events.Publish(events.New(events.EntityLayout, "delete", id, ""))
	c.Status(http.StatusNoContent)
}

func (h *Handler) writeErr(c *gin.Context, op string, err error) {
	if errors.Is(err, database.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "layout name already used"})
		return
	}
	h.Log.Error(op+" layout", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
}

// ResolveLayout picks the layout with id, else the bar's default layout,
// else DefaultLayout. An explicit id that doesn't exist yields nil.
func ResolveLayout(ctx context.Context, layouts *Repo, settings SettingsSource, id string) (*models.PrintLayout, error) {
	if id != "" {
		return layouts.GetByID(ctx, id)
	}
	if settings != nil {
		s, err := settings.Get(ctx)
		if err != nil {
			return nil, err
		}
		if s.DefaultLayoutID != "" {
			l, err := layouts.GetByID(ctx, s.DefaultLayoutID)
			if err != nil || l != nil {
				return l, err
			}
		}
	}
	def := DefaultLayout()
	return &def, nil
}

func (h *Handler) printOne(c *gin.Context) {
	h.print(c, []string{c.Param("id")}, c.Query("layout"))
}

type printReq struct {
	CocktailIDs []string `json:"cocktail_ids"`
	LayoutID    string   `json:"layout_id"`
}

func (h *Handler) printMany(c *gin.Context) {
	var req printReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(req.CocktailIDs) == 0 || len(req.CocktailIDs) > maxCardsPerPrint {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cocktail_ids must list 1 to 200 cocktails"})
		return
	}
	h.print(c, req.CocktailIDs, req.LayoutID)
}

func (h *Handler) print(c *gin.Context, ids []string, layoutID string) {
	ctx := c.Request.Context()

	layout, err := ResolveLayout(ctx, h.Layouts, h.Settings, layoutID)
	if err != nil {
		h.Log.Error("resolve layout", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "layout lookup failed"})
		return
	}
	if layout == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "layout not found"})
		return
	}

	cards := make([]models.Cocktail, 0, len(ids))
	for _, id := range ids {
		ct, err := h.Cocktails.GetByID(ctx, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
			return
		}
		if ct == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "cocktail not found: " + id})
			return
		}
		cards = append(cards, *ct)
	}

	title := "Recipe cards"
	if h.Settings != nil {
		if s, err := h.Settings.Get(ctx); err == nil && s.BarName != "" {
			title = s.BarName + " recipe cards"
		}
	}

	var buf bytes.Buffer
	if err := Render(&buf, title, *layout, cards); err != nil {
		h.Log.Error("render cards", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
