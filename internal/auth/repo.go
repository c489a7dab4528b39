package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"barbook/pkg/database"
	"barbook/pkg/models"
)

// ErrInvitationInvalid covers unknown, expired and already used invitations.
var ErrInvitationInvalid = errors.New("invitation invalid or expired")

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         models.Role
	TokenVersion int
	CreatedAt    time.Time
}

func (u User) Public() models.User {
	return models.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const userColumns = `id, email, name, password_hash, role, token_version, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.TokenVersion, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertUser(ctx context.Context, db execer, u User) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, role)
		VALUES (?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.Name, u.PasswordHash, string(u.Role))
	if err != nil {
		return fmt.Errorf("create user: %w", database.Classify(err))
	}
	return nil
}

func (r *Repo) CreateUser(ctx context.Context, u User) error {
	return insertUser(ctx, r.DB, u)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = ?
	`, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get by email: %w", err)
	}
	return u, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = ?
	`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get by id: %w", err)
	}
	return u, nil
}

func (r *Repo) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at ASC, email ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u.Public())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// UpdateRole also bumps the token version so tokens minted with the old
// role stop working.
func (r *Repo) UpdateRole(ctx context.Context, id string, role models.Role) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET role = ?, token_version = token_version + 1
		WHERE id = ?
	`, string(role), id)
	if err != nil {
		return false, fmt.Errorf("update role: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) UpdatePasswordAndBumpTokenVersion(ctx context.Context, id string, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?, token_version = token_version + 1
		WHERE id = ?
	`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update password: user not found")
	}
	return nil
}

func (r *Repo) BumpTokenVersion(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET token_version = token_version + 1
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump token version rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("bump token version: user not found")
	}
	return nil
}

func (r *Repo) CreateInvitation(ctx context.Context, inv models.Invitation) error {
	var invitedBy any
	if inv.InvitedBy != "" {
		invitedBy = inv.InvitedBy
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO invitations (token, email, role, invited_by, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, inv.Token, inv.Email, string(inv.Role), invitedBy, inv.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("create invitation: %w", database.Classify(err))
	}
	return nil
}

const invitationColumns = `token, email, role, invited_by, expires_at, accepted_at, created_at`

func scanInvitation(row rowScanner) (*models.Invitation, error) {
	var (
		inv       models.Invitation
		role      string
		invitedBy sql.NullString
		accepted  sql.NullTime
	)
	if err := row.Scan(&inv.Token, &inv.Email, &role, &invitedBy, &inv.ExpiresAt, &accepted, &inv.CreatedAt); err != nil {
		return nil, err
	}
	inv.Role = models.Role(role)
	inv.InvitedBy = invitedBy.String
	if accepted.Valid {
		t := accepted.Time
		inv.AcceptedAt = &t
	}
	return &inv, nil
}

func (r *Repo) ListInvitations(ctx context.Context) ([]models.Invitation, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+invitationColumns+`
		FROM invitations
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	out := make([]models.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// AcceptInvitation creates u with the invited email and role and marks the
// invitation used, atomically. u.Email and u.Role are overwritten.
func (r *Repo) AcceptInvitation(ctx context.Context, token string, u *User, now time.Time) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin accept invitation: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	inv, err := scanInvitation(tx.QueryRowContext(ctx, `
		SELECT `+invitationColumns+`
		FROM invitations
		WHERE token = ?
	`, token))
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrInvitationInvalid
		}
		return fmt.Errorf("get invitation: %w", err)
	}
	if inv.AcceptedAt != nil || !now.Before(inv.ExpiresAt) {
		return ErrInvitationInvalid
	}

	u.Email = inv.Email
	u.Role = inv.Role
	if err = insertUser(ctx, tx, *u); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE invitations SET accepted_at = ? WHERE token = ?
	`, now.UTC(), token); err != nil {
		return fmt.Errorf("mark invitation accepted: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit accept invitation: %w", err)
	}
	return nil
}
