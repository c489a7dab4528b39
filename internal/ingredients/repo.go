package ingredients

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"barbook/pkg/database"
	"barbook/pkg/fuzzy"
	"barbook/pkg/models"
)

// ResolveThreshold is the edit-distance score an existing ingredient must
// beat before Resolve treats a free-text name as referring to it.
const ResolveThreshold = 0.8

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const selectIngredient = `
	SELECT id, name, aliases, category, abv, notes, created_at, updated_at
	FROM ingredients
`

func scanIngredient(row rowScanner) (*models.Ingredient, error) {
	var (
		ing         models.Ingredient
		aliasesJSON string
		category    sql.NullString
		abv         sql.NullFloat64
		notes       sql.NullString
	)
	if err := row.Scan(&ing.ID, &ing.Name, &aliasesJSON, &category, &abv, &notes, &ing.CreatedAt, &ing.UpdatedAt); err != nil {
		return nil, err
	}
	ing.Category = category.String
	ing.Notes = notes.String
	if abv.Valid {
		v := abv.Float64
		ing.ABV = &v
	}
	_ = json.Unmarshal([]byte(aliasesJSON), &ing.Aliases)
	if ing.Aliases == nil {
		ing.Aliases = []string{}
	}
	return &ing, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Ingredient, error) {
	ing, err := scanIngredient(r.DB.QueryRowContext(ctx, selectIngredient+` WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get ingredient: %w", err)
	}
	return ing, nil
}

// GetByName matches the name exactly, ignoring case.
func (r *Repo) GetByName(ctx context.Context, name string) (*models.Ingredient, error) {
	ing, err := scanIngredient(r.DB.QueryRowContext(ctx, selectIngredient+` WHERE name = ? COLLATE NOCASE`, name))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get ingredient by name: %w", err)
	}
	return ing, nil
}

// List returns every ingredient ordered by name. category filters when set.
func (r *Repo) List(ctx context.Context, category string) ([]models.Ingredient, error) {
	q := selectIngredient
	var args []any
	if category != "" {
		q += ` WHERE category = ? COLLATE NOCASE`
		args = append(args, category)
	}
	q += ` ORDER BY name COLLATE NOCASE ASC`

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()

	out := []models.Ingredient{}
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		out = append(out, *ing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Create assigns ID and timestamps. A duplicate name yields database.ErrConflict.
func (r *Repo) Create(ctx context.Context, ing *models.Ingredient) error {
	now := time.Now().UTC()
	ing.ID = uuid.NewString()
	ing.CreatedAt, ing.UpdatedAt = now, now
	if ing.Aliases == nil {
		ing.Aliases = []string{}
	}
	aliases, err := json.Marshal(ing.Aliases)
	if err != nil {
		return fmt.Errorf("encode aliases: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO ingredients (id, name, aliases, category, abv, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, ing.ID, ing.Name, string(aliases), nullString(ing.Category), ing.ABV, nullString(ing.Notes), now, now)
	if err != nil {
		return fmt.Errorf("insert ingredient: %w", database.Classify(err))
	}
	return nil
}

// Update overwrites every editable column; found is false for unknown ids.
func (r *Repo) Update(ctx context.Context, ing *models.Ingredient) (bool, error) {
	ing.UpdatedAt = time.Now().UTC()
	if ing.Aliases == nil {
		ing.Aliases = []string{}
	}
	aliases, err := json.Marshal(ing.Aliases)
	if err != nil {
		return false, fmt.Errorf("encode aliases: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE ingredients
		SET name = ?, aliases = ?, category = ?, abv = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, ing.Name, string(aliases), nullString(ing.Category), ing.ABV, nullString(ing.Notes), ing.UpdatedAt, ing.ID)
	if err != nil {
		return false, fmt.Errorf("update ingredient: %w", database.Classify(err))
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Delete fails with database.ErrInUse while a recipe line references the
// ingredient.
func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM ingredients WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete ingredient: %w", database.Classify(err))
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Search ranks every ingredient's name and aliases against query.
func (r *Repo) Search(ctx context.Context, query string, threshold float64, limit int) ([]fuzzy.Result[models.Ingredient], error) {
	all, err := r.List(ctx, "")
	if err != nil {
		return nil, err
	}
	opts := fuzzy.DefaultOptions()
	opts.Threshold = threshold
	res := fuzzy.SearchMulti(all, query, models.Ingredient.Names, opts)
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// Resolve finds the existing ingredient a free-text name means. A name or
// alias equal to name after normalization wins outright. Otherwise the
// closest name by edit distance is taken when it scores above
// ResolveThreshold; texts where one side contains the other never resolve,
// so "Gin" stays apart from "Ginger Beer". It returns nil when nothing fits.
func (r *Repo) Resolve(ctx context.Context, name string) (*models.Ingredient, float64, error) {
	want := fuzzy.Normalize(name, false)
	if want == "" {
		return nil, 0, nil
	}
	all, err := r.List(ctx, "")
	if err != nil {
		return nil, 0, err
	}

	var (
		best      *models.Ingredient
		bestScore float64
	)
	for i := range all {
		for _, text := range all[i].Names() {
			got := fuzzy.Normalize(text, false)
			if got == want {
				return &all[i], 1, nil
			}
			if got == "" || strings.Contains(got, want) || strings.Contains(want, got) {
				continue
			}
			if score := fuzzy.Similarity(want, got); score > ResolveThreshold && score > bestScore {
				best, bestScore = &all[i], score
			}
		}
	}
	return best, bestScore, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
