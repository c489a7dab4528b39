package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barbook/pkg/database/dbtest"
	"barbook/pkg/models"
)

const (
	adminEmail    = "admin@bar.test"
	adminPassword = "correct-horse"
)

type testServer struct {
	router *gin.Engine
	repo   *Repo
	tokens TokenService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := NewRepo(dbtest.Open(t))
	tokens := TokenService{Secret: []byte("test-secret"), Issuer: "barbook-test", Duration: time.Hour}

	created, err := EnsureAdmin(context.Background(), repo, adminEmail, adminPassword)
	require.NoError(t, err)
	require.True(t, created)

	r := gin.New()
	h := NewHandler(repo, tokens, nil)
	h.RegisterRoutes(r.Group("/auth"))

	users := r.Group("/users", AuthMiddleware(tokens, repo))
	h.RegisterUserRoutes(users)

	admin := r.Group("/admin", AuthMiddleware(tokens, repo), RequireRole(models.RoleAdmin))
	NewAdminHandler(repo, time.Hour, nil).RegisterRoutes(admin)

	return &testServer{router: r, repo: repo, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
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
	s.router.ServeHTTP(w, req)
	return w
}

type tokenResp struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (s *testServer) login(t *testing.T, email, password string) tokenResp {
	t.Helper()
	w := s.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp tokenResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestTokenService(t *testing.T) {
	ts := TokenService{Secret: []byte("k"), Issuer: "barbook", Duration: time.Minute}
	u := &User{ID: "u1", Email: "a@b.c", Name: "A", Role: models.RoleEditor, TokenVersion: 3}

	raw, exp, err := ts.Sign(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	claims, err := ts.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleEditor, claims.Role)
	assert.Equal(t, 3, claims.TokenVersion)

	_, err = TokenService{Secret: []byte("other"), Issuer: "barbook"}.Parse(raw)
	assert.Error(t, err)

	_, err = TokenService{Secret: []byte("k"), Issuer: "elsewhere"}.Parse(raw)
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := BearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}

func TestVerify(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	u, err := s.repo.GetByEmail(ctx, adminEmail)
	require.NoError(t, err)
	raw, _, err := s.tokens.Sign(u)
	require.NoError(t, err)

	claims, err := Verify(ctx, s.tokens, s.repo, raw)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = Verify(ctx, s.tokens, s.repo, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, s.repo.BumpTokenVersion(ctx, u.ID))
	_, err = Verify(ctx, s.tokens, s.repo, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// without a repo only the signature is checked
	claims, err = Verify(ctx, s.tokens, nil, raw)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
}

func TestEnsureAdmin_OnlyOnce(t *testing.T) {
	repo := NewRepo(dbtest.Open(t))
	ctx := context.Background()

	created, err := EnsureAdmin(ctx, repo, "", "whatever1")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = EnsureAdmin(ctx, repo, "boss@bar.test", "short")
	assert.Error(t, err)

	created, err = EnsureAdmin(ctx, repo, "Boss@Bar.test", "long-enough")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureAdmin(ctx, repo, "other@bar.test", "long-enough")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := repo.GetByEmail(ctx, "boss@bar.test")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, models.RoleAdmin, u.Role)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	resp := s.login(t, "ADMIN@bar.test", adminPassword)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)

	w := s.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": adminEmail, "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "nobody@bar.test", "password": adminPassword})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/auth/login", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMiddleware_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/users/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := s.login(t, adminEmail, adminPassword).Token
	w = s.do(t, http.MethodGet, "/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, adminEmail, me.Email)
}

func TestAdmin_CreateUserAndRoles(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, adminEmail, adminPassword).Token

	w := s.do(t, http.MethodPost, "/admin/users", admin, gin.H{
		"email": "Ed@Bar.test", "name": "Ed", "password": "editor-pass", "role": "editor",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var ed models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ed))
	assert.Equal(t, "ed@bar.test", ed.Email)
	assert.Equal(t, models.RoleEditor, ed.Role)

	w = s.do(t, http.MethodPost, "/admin/users", admin, gin.H{
		"email": "ed@bar.test", "name": "Ed 2", "password": "editor-pass",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/admin/users", admin, gin.H{
		"email": "x@bar.test", "name": "X", "password": "password1", "role": "owner",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	edToken := s.login(t, "ed@bar.test", "editor-pass").Token
	w = s.do(t, http.MethodGet, "/admin/users", edToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// promoting bumps the token version, so the old token dies
	w = s.do(t, http.MethodPatch, "/admin/users/"+ed.ID+"/role", admin, gin.H{"role": "admin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodGet, "/users/me", edToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	edToken = s.login(t, "ed@bar.test", "editor-pass").Token
	w = s.do(t, http.MethodGet, "/admin/users", edToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items []models.User `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Items, 2)
}

func TestAdmin_CannotDemoteOrDeleteSelf(t *testing.T) {
	s := newTestServer(t)
	resp := s.login(t, adminEmail, adminPassword)

	w := s.do(t, http.MethodPatch, "/admin/users/"+resp.User.ID+"/role", resp.Token, gin.H{"role": "viewer"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodDelete, "/admin/users/"+resp.User.ID, resp.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodDelete, "/admin/users/missing", resp.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvitationFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, adminEmail, adminPassword).Token

	w := s.do(t, http.MethodPost, "/admin/invitations", admin, gin.H{"email": "new@bar.test", "role": "editor"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var inv models.Invitation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inv))
	require.NotEmpty(t, inv.Token)

	w = s.do(t, http.MethodPost, "/auth/accept-invite", "", gin.H{"token": inv.Token, "name": "Newbie", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/auth/accept-invite", "", gin.H{"token": inv.Token, "name": "Newbie", "password": "long-enough"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp tokenResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "new@bar.test", resp.User.Email)
	assert.Equal(t, models.RoleEditor, resp.User.Role)

	w = s.do(t, http.MethodPost, "/auth/accept-invite", "", gin.H{"token": inv.Token, "name": "Again", "password": "long-enough"})
	assert.Equal(t, http.StatusGone, w.Code)

	w = s.do(t, http.MethodPost, "/admin/invitations", admin, gin.H{"email": "new@bar.test"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/admin/invitations", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items []models.Invitation `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.NotNil(t, list.Items[0].AcceptedAt)
}

func TestAcceptInvitation_Expired(t *testing.T) {
	repo := NewRepo(dbtest.Open(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.CreateInvitation(ctx, models.Invitation{
		Token: "tok", Email: "late@bar.test", Role: models.RoleViewer, ExpiresAt: now.Add(time.Hour),
	}))

	u := &User{ID: "u-late", Name: "Late", PasswordHash: "x"}
	err := repo.AcceptInvitation(ctx, "tok", u, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrInvitationInvalid)

	err = repo.AcceptInvitation(ctx, "unknown", u, now)
	assert.ErrorIs(t, err, ErrInvitationInvalid)

	got, err := repo.GetByID(ctx, "u-late")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLogoutAndChangePassword(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, adminEmail, adminPassword).Token

	w := s.do(t, http.MethodPost, "/auth/change-password", token, gin.H{"old_password": "nope-nope", "new_password": "new-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/auth/change-password", token, gin.H{"old_password": adminPassword, "new_password": "new-password"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token = s.login(t, adminEmail, "new-password").Token
	w = s.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
