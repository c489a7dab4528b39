package printcard

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barbook/internal/auth/authtest"
	"barbook/internal/cocktails"
	"barbook/internal/settings"
	"barbook/pkg/database/dbtest"
	"barbook/pkg/models"
)

type fixture struct {
	router   *gin.Engine
	layouts  *Repo
	settings *settings.Repo
	cocktail models.Cocktail
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := dbtest.Open(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO ingredients (id, name) VALUES ('gin', 'Gin'), ('tonic', 'Tonic Water')`)
	require.NoError(t, err)

	cr := cocktails.NewRepo(db)
	gt := models.Cocktail{
		Name:    "Gin & Tonic",
		Glass:   "Highball",
		Garnish: "Lime wheel",
		Lines: []models.RecipeLine{
			{IngredientID: "gin", Amount: 50, Unit: "ml"},
			{IngredientID: "tonic", Amount: 150, Unit: "ml"},
		},
	}
	require.NoError(t, cr.Create(ctx, &gt))

	f := &fixture{
		layouts:  NewRepo(db),
		settings: settings.NewRepo(db, models.Settings{BarName: "Test Bar", SearchThreshold: 0.3}),
		cocktail: gt,
	}
	f.router = gin.New()
	NewHandler(f.layouts, cr, f.settings, nil, nil).RegisterRoutes(f.router.Group("/print", authtest.Middleware()))
	return f
}

func (f *fixture) do(t *testing.T, method, path, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(authtest.RoleHeader, role)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestHandler_LayoutLifecycle(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/print/layouts", "viewer", gin.H{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/print/layouts", "editor", gin.H{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/print/layouts", "editor", gin.H{"name": "Mine"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var l models.PrintLayout
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &l))
	assert.Equal(t, 105.0, l.PageWidthMM)
	assert.Len(t, l.Fields, len(DefaultLayout().Fields))

	w = f.do(t, http.MethodPost, "/print/layouts", "editor", gin.H{"name": "mine"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// drag the name off the right edge: x is clamped to 100 - width
	w = f.do(t, http.MethodPatch, "/print/layouts/"+l.ID+"/fields/name", "editor", gin.H{"x": 80, "y": 50})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &l))
	assert.Equal(t, 10.0, l.Fields[0].X)
	assert.Equal(t, 50.0, l.Fields[0].Y)

	// placing a field the layout lacks adds it
	w = f.do(t, http.MethodPatch, "/print/layouts/"+l.ID+"/fields/tags", "editor", gin.H{"x": 5, "y": 95, "width": 30})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &l))
	last := l.Fields[len(l.Fields)-1]
	assert.Equal(t, models.LayoutField{Key: "tags", X: 5, Y: 95, Width: 30, FontSize: 10}, last)

	w = f.do(t, http.MethodPatch, "/print/layouts/"+l.ID+"/fields/logo", "editor", gin.H{"x": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodDelete, "/print/layouts/"+l.ID+"/fields/tags", "editor", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodDelete, "/print/layouts/"+l.ID+"/fields/tags", "editor", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPut, "/print/layouts/"+l.ID, "editor", gin.H{"name": "Renamed", "page_width_mm": 210, "page_height_mm": 297})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &l))
	assert.Equal(t, "Renamed", l.Name)
	assert.Len(t, l.Fields, len(DefaultLayout().Fields), "fields kept when omitted")

	w = f.do(t, http.MethodGet, "/print/layouts", "viewer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Renamed")

	w = f.do(t, http.MethodDelete, "/print/layouts/"+l.ID, "editor", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, http.MethodGet, "/print/layouts/"+l.ID, "viewer", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_Print(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := f.do(t, http.MethodGet, "/print/cocktails/"+f.cocktail.ID, "viewer", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	body := w.Body.String()
	assert.Contains(t, body, "Test Bar recipe cards")
	assert.Contains(t, body, "Gin &amp; Tonic")
	assert.Contains(t, body, "<li>150 ml Tonic Water</li>")

	// the bar's default layout wins over the built-in one
	custom := models.PrintLayout{
		Name: "Tiny", PageWidthMM: 50, PageHeightMM: 50,
		Fields: []models.LayoutField{{Key: FieldName, X: 0, Y: 0, Width: 100, FontSize: 8}},
	}
	require.NoError(t, f.layouts.Create(ctx, &custom))
	id := custom.ID
	_, err := f.settings.Update(ctx, settings.Patch{DefaultLayoutID: &id})
	require.NoError(t, err)

	w = f.do(t, http.MethodPost, "/print/cards", "viewer", gin.H{"cocktail_ids": []string{f.cocktail.ID, f.cocktail.ID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = w.Body.String()
	assert.Equal(t, 2, strings.Count(body, `<section class="card">`))
	assert.Contains(t, body, "50mm 50mm")
	assert.NotContains(t, body, "Tonic Water")

	w = f.do(t, http.MethodGet, "/print/cocktails/"+f.cocktail.ID+"?layout=missing", "viewer", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(t, http.MethodGet, "/print/cocktails/missing", "viewer", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(t, http.MethodPost, "/print/cards", "viewer", gin.H{"cocktail_ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
