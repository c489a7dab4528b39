package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"go.uber.org/zap"

	"barbook/pkg/database"
	"barbook/pkg/models"
)

// AdminHandler holds the privileged user-management operations.
type AdminHandler struct {
	Repo      *Repo
	InviteTTL time.Duration
	Log       *zap.Logger
}

func NewAdminHandler(repo *Repo, inviteTTL time.Duration, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{Repo: repo, InviteTTL: inviteTTL, Log: logger}
}

// RegisterRoutes expects rg to be behind AuthMiddleware and RequireRole(admin).
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users", h.listUsers)
	rg.POST("/users", h.createUser)
	rg.PATCH("/users/:id/role", h.updateRole)
	rg.DELETE("/users/:id", h.deleteUser)
	rg.GET("/invitations", h.listInvitations)
	rg.POST("/invitations", h.invite)
}

func (h *AdminHandler) listUsers(c *gin.Context) {
	users, err := h.Repo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": users})
}

type createUserReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *AdminHandler) createUser(c *gin.Context) {
	var req createUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	role, ok := ParseRoleOrDefault(req.Role)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be one of: viewer, editor, admin"})
		return
	}
	for _, msg := range []string{validateEmail(email), validateName(name), validatePassword(req.Password)} {
		if msg != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}
	}

	u, err := createUser(c.Request.Context(), h.Repo, email, name, req.Password, role)
	if errors.Is(err, database.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
		return
	}
	if err != nil {
		h.Log.Error("create user", zap.String("email", email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		return
	}

	h.Log.Info("user created", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	c.JSON(http.StatusCreated, u.Public())
}

type updateRoleReq struct {
	Role string `json:"role"`
}

func (h *AdminHandler) updateRole(c *gin.Context) {
	claims := MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req updateRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be one of: viewer, editor, admin"})
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == claims.UserID && role != models.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot demote yourself"})
		return
	}

	ok, err := h.Repo.UpdateRole(c.Request.Context(), id, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	u, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil || u == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch saved failed"})
		return
	}
	c.JSON(http.StatusOK, u.Public())
}

func (h *AdminHandler) deleteUser(c *gin.Context) {
	claims := MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == claims.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete yourself"})
		return
	}

	ok, err := h.Repo.Delete(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *AdminHandler) listInvitations(c *gin.Context) {
	items, err := h.Repo.ListInvitations(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type inviteReq struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *AdminHandler) invite(c *gin.Context) {
	claims := MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req inviteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := normalizeEmail(req.Email)
	if msg := validateEmail(email); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	role, ok := ParseRoleOrDefault(req.Role)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be one of: viewer, editor, admin"})
		return
	}

	if u, _ := h.Repo.GetByEmail(c.Request.Context(), email); u != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
		return
	}

	now := time.Now().UTC()
	inv := models.Invitation{
		Token:     uuid.NewString(),
		Email:     email,
		Role:      role,
		InvitedBy: claims.UserID,
		ExpiresAt: now.Add(h.InviteTTL),
		CreatedAt: now,
	}
	if err := h.Repo.CreateInvitation(c.Request.Context(), inv); err != nil {
		h.Log.Error("create invitation", zap.String("email", email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invite failed"})
		return
	}

	c.JSON(http.StatusCreated, inv)
}

// ParseRoleOrDefault treats an empty role as viewer.
func ParseRoleOrDefault(s string) (models.Role, bool) {
	if strings.TrimSpace(s) == "" {
		return models.RoleViewer, true
	}
	return models.ParseRole(s)
}

func createUser(ctx context.Context, repo *Repo, email, name, password string, role models.Role) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	saved, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("create user: saved row missing")
	}
	return saved, nil
}

// EnsureAdmin creates an admin account when the users table is empty. It is
// a no-op once any user exists or when email is blank.
func EnsureAdmin(ctx context.Context, repo *Repo, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return false, nil
	}
	n, err := repo.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if msg := validatePassword(password); msg != "" {
		return false, fmt.Errorf("bootstrap admin: %s", msg)
	}
	if _, err := createUser(ctx, repo, email, "Admin", password, models.RoleAdmin); err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	return true, nil
}
