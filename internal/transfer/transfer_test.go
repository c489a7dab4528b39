package transfer

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barbook/internal/auth/authtest"
	"barbook/internal/cocktails"
	"barbook/internal/ingredients"
	"barbook/pkg/database/dbtest"
	"barbook/pkg/models"
)

func newTransfer(t *testing.T) *Transfer {
	t.Helper()
	db := dbtest.Open(t)
	tr := New(ingredients.NewRepo(db), cocktails.NewRepo(db), nil)
	for _, name := range []string{"Lime Juice", "Gin", "Simple Syrup"} {
		require.NoError(t, tr.Ingredients.Create(context.Background(), &models.Ingredient{Name: name}))
	}
	return tr
}

const gimletCSV = `cocktail,glass,method,garnish,tags,ingredient,amount,unit
Gimlet,Coupe,Shake,Lime wheel,Classic;Sour,gin,60,ml
Gimlet,,,,,lime juce,20,ml
Gimlet,,,,,Simple Syrup,15,ml
Southside,Coupe,Shake,Mint,,Gin,60,ml
Southside,,,,,Fresh Mint,6,leaves
`

func TestImport(t *testing.T) {
	tr := newTransfer(t)
	ctx := context.Background()

	rep, err := tr.Import(ctx, strings.NewReader(gimletCSV))
	require.NoError(t, err)
	assert.Equal(t, 5, rep.Rows)
	assert.Equal(t, 2, rep.CocktailsCreated)
	assert.Equal(t, 0, rep.CocktailsUpdated)
	assert.Equal(t, 1, rep.IngredientsCreated, "only Fresh Mint is new")
	assert.Equal(t, map[string]string{"lime juce": "Lime Juice"}, rep.IngredientsMatched)

	g, err := tr.Cocktails.GetByName(ctx, "gimlet")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "Coupe", g.Glass)
	assert.Equal(t, []string{"classic", "sour"}, g.Tags)
	require.Len(t, g.Lines, 3)
	assert.Equal(t, "Gin", g.Lines[0].IngredientName)
	assert.Equal(t, "Lime Juice", g.Lines[1].IngredientName)
	assert.Equal(t, 20.0, g.Lines[1].Amount)

	// a second run updates in place and keeps fields the csv lacks
	g.Notes = "house favourite"
	_, err = tr.Cocktails.Update(ctx, g)
	require.NoError(t, err)

	rep, err = tr.Import(ctx, strings.NewReader(gimletCSV))
	require.NoError(t, err)
	assert.Equal(t, 0, rep.CocktailsCreated)
	assert.Equal(t, 2, rep.CocktailsUpdated)
	assert.Equal(t, 0, rep.IngredientsCreated)

	g, err = tr.Cocktails.GetByName(ctx, "Gimlet")
	require.NoError(t, err)
	assert.Equal(t, "house favourite", g.Notes)
	assert.Len(t, g.Lines, 3)
}

func TestImport_ContainedNameCreatesOwnIngredient(t *testing.T) {
	db := dbtest.Open(t)
	tr := New(ingredients.NewRepo(db), cocktails.NewRepo(db), nil)
	ctx := context.Background()

	const in = `cocktail,glass,method,garnish,tags,ingredient,amount,unit
Moscow Mule,Mug,Build,,,Ginger Beer,120,ml
Negroni,Rocks,Stir,,,Gin,30,ml
`
	rep, err := tr.Import(ctx, strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, rep.IngredientsCreated)
	assert.Empty(t, rep.IngredientsMatched)

	n, err := tr.Cocktails.GetByName(ctx, "Negroni")
	require.NoError(t, err)
	require.NotNil(t, n)
	require.Len(t, n.Lines, 1)
	assert.Equal(t, "Gin", n.Lines[0].IngredientName)

	var out bytes.Buffer
	_, err = tr.Export(ctx, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Negroni,Rocks,Stir,,,Gin,30,ml")
	assert.Contains(t, out.String(), "Moscow Mule,Mug,Build,,,Ginger Beer,120,ml")
}

func TestImport_RejectsBadFiles(t *testing.T) {
	tr := newTransfer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		csv  string
		want string
	}{
		{"empty", "", "csv is empty"},
		{"missing column", "cocktail,glass\nGimlet,Coupe\n", `missing "ingredient"`},
		{"bad amount", "cocktail,ingredient,amount\nGimlet,Gin,lots\n", "invalid amount"},
		{"negative amount", "cocktail,ingredient,amount\nGimlet,Gin,-2\n", "invalid amount"},
		{"no cocktail name", "cocktail,ingredient\n,Gin\n", "cocktail name required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.Import(ctx, strings.NewReader(tt.csv))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	all, err := tr.Cocktails.All(ctx, "", "", nil)
	require.NoError(t, err)
	assert.Empty(t, all, "failed imports write nothing")
}

func TestExport_RoundTrip(t *testing.T) {
	tr := newTransfer(t)
	ctx := context.Background()
	_, err := tr.Import(ctx, strings.NewReader(gimletCSV))
	require.NoError(t, err)
	require.NoError(t, tr.Cocktails.Create(ctx, &models.Cocktail{Name: "Empty Glass", Active: true}))

	var buf bytes.Buffer
	n, err := tr.Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1+1+3+2)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"Empty Glass", "", "", "", "", "", "", ""}, rows[1])
	assert.Equal(t, []string{"Gimlet", "Coupe", "Shake", "Lime wheel", "classic;sour", "Gin", "60", "ml"}, rows[2])

	// exporting then importing into a fresh database reproduces the recipes
	other := newTransfer(t)
	rep, err := other.Import(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 3, rep.CocktailsCreated)
	s, err := other.Cocktails.GetByName(ctx, "Southside")
	require.NoError(t, err)
	require.Len(t, s.Lines, 2)
	assert.Equal(t, "Fresh Mint", s.Lines[1].IngredientName)
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tr := newTransfer(t)
	r := gin.New()
	NewHandler(tr, nil).RegisterRoutes(r.Group("/transfer", authtest.Middleware()))

	req := httptest.NewRequest(http.MethodPost, "/transfer/import", strings.NewReader(gimletCSV))
	req.Header.Set(authtest.RoleHeader, "viewer")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/transfer/import", strings.NewReader(gimletCSV))
	req.Header.Set(authtest.RoleHeader, "editor")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"cocktails_created":2`)

	req = httptest.NewRequest(http.MethodGet, "/transfer/export", nil)
	req.Header.Set(authtest.RoleHeader, "editor")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "Southside,Coupe,Shake,Mint,,Gin,60,ml")
}
