package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"barbook/pkg/database"
	"barbook/pkg/models"
)

// ErrNotPermutation rejects a reorder that doesn't list every item exactly once.
var ErrNotPermutation = errors.New("order must list every catalog item exactly once")

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const selectItem = `
	SELECT ci.id, ci.cocktail_id, c.name, ci.section, ci.position, ci.visible, ci.price_cents, ci.updated_at
	FROM catalog_items ci
	JOIN cocktails c ON c.id = ci.cocktail_id
`

func scanItem(row rowScanner) (*models.CatalogItem, error) {
	var (
		it      models.CatalogItem
		section sql.NullString
		price   sql.NullInt64
	)
	if err := row.Scan(&it.ID, &it.CocktailID, &it.CocktailName, &section, &it.Position, &it.Visible, &price, &it.UpdatedAt); err != nil {
		return nil, err
	}
	it.Section = section.String
	if price.Valid {
		p := int(price.Int64)
		it.PriceCents = &p
	}
	return &it, nil
}

// List returns the menu in position order. Hidden items are left out unless
// includeHidden is set.
func (r *Repo) List(ctx context.Context, includeHidden bool) ([]models.CatalogItem, error) {
	q := selectItem
	if !includeHidden {
		q += ` WHERE ci.visible = 1`
	}
	q += ` ORDER BY ci.position ASC`

	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	defer rows.Close()

	out := []models.CatalogItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.CatalogItem, error) {
	it, err := scanItem(r.DB.QueryRowContext(ctx, selectItem+` WHERE ci.id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get catalog item: %w", err)
	}
	return it, nil
}

// Add appends it to the end of the menu. A cocktail already on the menu
// yields database.ErrConflict, an unknown one database.ErrInUse.
func (r *Repo) Add(ctx context.Context, it *models.CatalogItem) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add catalog item: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM catalog_items`).Scan(&it.Position); err != nil {
		return fmt.Errorf("next catalog position: %w", err)
	}

	it.ID = uuid.NewString()
	it.UpdatedAt = time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO catalog_items (id, cocktail_id, section, position, visible, price_cents, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, it.ID, it.CocktailID, nullString(it.Section), it.Position, it.Visible, it.PriceCents, it.UpdatedAt); err != nil {
		return fmt.Errorf("insert catalog item: %w", database.Classify(err))
	}

	if err = tx.QueryRowContext(ctx, `SELECT name FROM cocktails WHERE id = ?`, it.CocktailID).Scan(&it.CocktailName); err != nil {
		return fmt.Errorf("catalog cocktail name: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit add catalog item: %w", err)
	}
	return nil
}

// Patch changes only the fields that are set.
type Patch struct {
	Section    *string
	Visible    *bool
	PriceCents *int
	ClearPrice bool
}

func (r *Repo) Update(ctx context.Context, id string, p Patch) (*models.CatalogItem, error) {
	it, err := r.GetByID(ctx, id)
	if err != nil || it == nil {
		return nil, err
	}

	if p.Section != nil {
		it.Section = *p.Section
	}
	if p.Visible != nil {
		it.Visible = *p.Visible
	}
	if p.ClearPrice {
		it.PriceCents = nil
	} else if p.PriceCents != nil {
		it.PriceCents = p.PriceCents
	}
	it.UpdatedAt = time.Now().UTC()

	if _, err := r.DB.ExecContext(ctx, `
		UPDATE catalog_items
		SET section = ?, visible = ?, price_cents = ?, updated_at = ?
		WHERE id = ?
	`, nullString(it.Section), it.Visible, it.PriceCents, it.UpdatedAt, it.ID); err != nil {
		return nil, fmt.Errorf("update catalog item: %w", err)
	}
	return it, nil
}

// Remove deletes an item and closes the gap it leaves in the positions.
func (r *Repo) Remove(ctx context.Context, id string) (found bool, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin remove catalog item: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var pos int
	err = tx.QueryRowContext(ctx, `SELECT position FROM catalog_items WHERE id = ?`, id).Scan(&pos)
	if err == sql.ErrNoRows {
		_ = tx.Rollback()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get catalog position: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM catalog_items WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("delete catalog item: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE catalog_items SET position = position - 1 WHERE position > ?`, pos); err != nil {
		return false, fmt.Errorf("shift catalog positions: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit remove catalog item: %w", err)
	}
	return true, nil
}

// Reorder rewrites every position from ids, which must be a permutation of
// the current item ids.
func (r *Repo) Reorder(ctx context.Context, ids []string) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder catalog: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM catalog_items`)
	if err != nil {
		return fmt.Errorf("list catalog ids: %w", err)
	}
	current := make(map[string]bool)
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan catalog id: %w", err)
		}
		current[id] = false
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return fmt.Errorf("rows err: %w", err)
	}

	if len(ids) != len(current) {
		return ErrNotPermutation
	}
	for _, id := range ids {
		seen, ok := current[id]
		if !ok || seen {
			return ErrNotPermutation
		}
		current[id] = true
	}

	now := time.Now().UTC()
	for pos, id := range ids {
		if _, err = tx.ExecContext(ctx, `UPDATE catalog_items SET position = ?, updated_at = ? WHERE id = ?`, pos, now, id); err != nil {
			return fmt.Errorf("set catalog position: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder catalog: %w", err)
	}
	return nil
}

// Section groups consecutive menu items.
type Section struct {
	Name  string               `json:"name"`
	Items []models.CatalogItem `json:"items"`
}

// Sections groups items by section in order of first appearance.
func Sections(items []models.CatalogItem) []Section {
	out := []Section{}
	idx := make(map[string]int)
	for _, it := range items {
		i, ok := idx[it.Section]
		if !ok {
			i = len(out)
			idx[it.Section] = i
			out = append(out, Section{Name: it.Section})
		}
		out[i].Items = append(out[i].Items, it)
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
