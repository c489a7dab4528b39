package transfer

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"barbook/internal/auth"
	"barbook/internal/events"
	"barbook/pkg/models"
)

const maxImportBytes = 4 << 20

type Handler struct {
	Transfer *Transfer
	Events   events.Publisher
}

func NewHandler(t *Transfer, pub events.Publisher) *Handler {
	return &Handler{Transfer: t, Events: events.OrNop(pub)}
}

// RegisterRoutes expects rg to be behind AuthMiddleware. Both directions
// need editor.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	editor := auth.RequireRole(models.RoleEditor)
	rg.GET("/export", editor, h.export)
	rg.POST("/import", editor, h.importCSV)
}

func (h *Handler) export(c *gin.Context) {
	var buf bytes.Buffer
	if _, err := h.Transfer.Export(c.Request.Context(), &buf); err != nil {
		h.Transfer.Log.Error("csv export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="cocktails.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *Handler) importCSV(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}
	if len(body) > maxImportBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "csv too large"})
		return
	}

	rep, err := h.Transfer.Import(c.Request.Context(), bytes.NewReader(body))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "report": rep})
		return
	}
	if rep.CocktailsCreated+rep.CocktailsUpdated > 0 {
		h.Events.Publish(events.New(events.EntityCocktail, "import", "", ""))
	}
	c.JSON(http.StatusOK, rep)
}
