package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"barbook/internal/auth"
	"barbook/internal/events"
	"barbook/pkg/config"
	"barbook/pkg/database/dbtest"
)

func newTestApp(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"
	db := dbtest.Open(t)

	_, err := auth.EnsureAdmin(context.Background(), auth.NewRepo(db), "admin@bar.test", "s3cret-pass")
	require.NoError(t, err)

	a := &app{cfg: cfg, db: db, hub: events.NewHub(), log: zap.NewNop()}
	return a.router()
}

func call(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	r := newTestApp(t)

	w := call(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(t, r, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ready := decode[map[string]any](t, w)
	assert.Equal(t, "ready", ready["status"])
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	r := newTestApp(t)
	for _, path := range []string{"/ingredients", "/cocktails", "/catalog", "/settings", "/print/layouts", "/users/me"} {
		w := call(t, r, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestEndToEnd(t *testing.T) {
	r := newTestApp(t)

	w := call(t, r, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "admin@bar.test", "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode[struct {
		Token string `json:"token"`
	}](t, w).Token
	require.NotEmpty(t, token)

	for _, name := range []string{"Gin", "Campari", "Sweet Vermouth"} {
		w = call(t, r, http.MethodPost, "/ingredients", token, map[string]any{"name": name})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = call(t, r, http.MethodPost, "/cocktails", token, map[string]any{
		"name":  "Negroni",
		"glass": "rocks",
		"lines": []map[string]any{
			{"ingredient_name": "gin", "amount": 30, "unit": "ml"},
			{"ingredient_name": "campari", "amount": 30, "unit": "ml"},
			{"ingredient_name": "sweet vermouth", "amount": 30, "unit": "ml"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	negroni := decode[struct {
		ID string `json:"id"`
	}](t, w)

	w = call(t, r, http.MethodGet, "/ingredients/search?q=campary", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Campari")

	w = call(t, r, http.MethodGet, "/cocktails?ingredient=gin&ingredient=campari", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Negroni")

	w = call(t, r, http.MethodPost, "/catalog", token, map[string]any{
		"cocktail_id": negroni.ID, "section": "Classics",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(t, r, http.MethodGet, "/catalog", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Classics")

	w = call(t, r, http.MethodGet, "/print/cocktails/"+negroni.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Negroni")

	w = call(t, r, http.MethodGet, "/transfer/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Negroni,rocks")
}
