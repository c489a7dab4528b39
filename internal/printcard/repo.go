package printcard

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"barbook/pkg/database"
	"barbook/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const selectLayout = `
	SELECT id, name, page_width_mm, page_height_mm, fields, updated_at
	FROM print_layouts
`

func scanLayout(row rowScanner) (*models.PrintLayout, error) {
	var (
		l          models.PrintLayout
		fieldsJSON string
	)
	if err := row.Scan(&l.ID, &l.Name, &l.PageWidthMM, &l.PageHeightMM, &fieldsJSON, &l.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &l.Fields); err != nil {
		return nil, fmt.Errorf("decode layout fields: %w", err)
	}
	if l.Fields == nil {
		l.Fields = []models.LayoutField{}
	}
	return &l, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.PrintLayout, error) {
	l, err := scanLayout(r.DB.QueryRowContext(ctx, selectLayout+` WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get layout: %w", err)
	}
	return l, nil
}

func (r *Repo) List(ctx context.Context) ([]models.PrintLayout, error) {
	rows, err := r.DB.QueryContext(ctx, selectLayout+` ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	defer rows.Close()

	out := []models.PrintLayout{}
	for rows.Next() {
		l, err := scanLayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan layout: %w", err)
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Create(ctx context.Context, l *models.PrintLayout) error {
	l.ID = uuid.NewString()
	l.UpdatedAt = time.Now().UTC()
	fields, err := encodeFields(l.Fields)
	if err != nil {
		return err
	}

	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO print_layouts (id, name, page_width_mm, page_height_mm, fields, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, l.ID, l.Name, l.PageWidthMM, l.PageHeightMM, fields, l.UpdatedAt); err != nil {
		return fmt.Errorf("insert layout: %w", database.Classify(err))
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, l *models.PrintLayout) (bool, error) {
	l.UpdatedAt = time.Now().UTC()
	fields, err := encodeFields(l.Fields)
	if err != nil {
		return false, err
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE print_layouts
		SET name = ?, page_width_mm = ?, page_height_mm = ?, fields = ?, updated_at = ?
		WHERE id = ?
	`, l.Name, l.PageWidthMM, l.PageHeightMM, fields, l.UpdatedAt, l.ID)
	if err != nil {
		return false, fmt.Errorf("update layout: %w", database.Classify(err))
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM print_layouts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete layout: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func encodeFields(fields []models.LayoutField) (string, error) {
	if fields == nil {
		fields = []models.LayoutField{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode layout fields: %w", err)
	}
	return string(b), nil
}
