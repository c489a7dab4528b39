package cocktails

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"barbook/pkg/database"
	"barbook/pkg/models"
)

// ErrUnknownIngredient reports a recipe line naming no stored ingredient.
var ErrUnknownIngredient = errors.New("unknown ingredient")

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const selectCocktail = `
	SELECT id, name, description, method, glass, garnish, tags, notes, active, created_at, updated_at
	FROM cocktails
`

func scanCocktail(row rowScanner) (*models.Cocktail, error) {
	var (
		c           models.Cocktail
		description sql.NullString
		method      sql.NullString
		glass       sql.NullString
		garnish     sql.NullString
		tagsJSON    string
		notes       sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &description, &method, &glass, &garnish, &tagsJSON, &notes, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Description = description.String
	c.Method = method.String
	c.Glass = glass.String
	c.Garnish = garnish.String
	c.Notes = notes.String
	_ = json.Unmarshal([]byte(tagsJSON), &c.Tags)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	c.Lines = []models.RecipeLine{}
	return &c, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Cocktail, error) {
	return r.getOne(ctx, selectCocktail+` WHERE id = ?`, id)
}

// GetByName matches the name exactly, ignoring case.
func (r *Repo) GetByName(ctx context.Context, name string) (*models.Cocktail, error) {
	return r.getOne(ctx, selectCocktail+` WHERE name = ? COLLATE NOCASE`, name)
}

func (r *Repo) getOne(ctx context.Context, query string, arg string) (*models.Cocktail, error) {
	c, err := scanCocktail(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get cocktail: %w", err)
	}

	lines, err := r.linesFor(ctx, `WHERE l.cocktail_id = ?`, c.ID)
	if err != nil {
		return nil, err
	}
	c.Lines = lines[c.ID]
	if c.Lines == nil {
		c.Lines = []models.RecipeLine{}
	}
	return c, nil
}

// linesFor loads recipe lines keyed by cocktail id, ordered by position.
func (r *Repo) linesFor(ctx context.Context, where string, args ...any) (map[string][]models.RecipeLine, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT l.cocktail_id, l.position, l.ingredient_id, i.name, l.amount, l.unit, l.notes
		FROM recipe_lines l
		JOIN ingredients i ON i.id = l.ingredient_id
		`+where+`
		ORDER BY l.cocktail_id, l.position
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list recipe lines: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.RecipeLine)
	for rows.Next() {
		var (
			cocktailID string
			l          models.RecipeLine
			unit       sql.NullString
			notes      sql.NullString
		)
		if err := rows.Scan(&cocktailID, &l.Position, &l.IngredientID, &l.IngredientName, &l.Amount, &unit, &notes); err != nil {
			return nil, fmt.Errorf("scan recipe line: %w", err)
		}
		l.Unit = unit.String
		l.Notes = notes.String
		out[cocktailID] = append(out[cocktailID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// All returns every cocktail with its lines, ordered by name. glass, tag and
// active narrow the result when set; fuzzy filters run on top of this.
func (r *Repo) All(ctx context.Context, glass, tag string, active *bool) ([]models.Cocktail, error) {
	var where []string
	var args []any
	if glass != "" {
		where = append(where, "glass = ? COLLATE NOCASE")
		args = append(args, glass)
	}
	if tag != "" {
		// tags is a JSON array; match the quoted element
		where = append(where, "LOWER(tags) LIKE ?")
		b, _ := json.Marshal(strings.ToLower(tag))
		args = append(args, "%"+string(b)+"%")
	}
	if active != nil {
		where = append(where, "active = ?")
		args = append(args, *active)
	}

	q := selectCocktail
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY name COLLATE NOCASE ASC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list cocktails: %w", err)
	}
	defer rows.Close()

	out := []models.Cocktail{}
	for rows.Next() {
		c, err := scanCocktail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cocktail: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	lines, err := r.linesFor(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range out {
		if ls := lines[out[i].ID]; ls != nil {
			out[i].Lines = ls
		}
	}
	return out, nil
}

// Create stores c and its lines in one transaction. Lines may name their
// ingredient by id or by exact name; positions are renumbered from 0.
func (r *Repo) Create(ctx context.Context, c *models.Cocktail) error {
	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = now, now

	return r.inTx(ctx, "create cocktail", func(tx *sql.Tx) error {
		tags, err := encodeTags(c.Tags)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cocktails (id, name, description, method, glass, garnish, tags, notes, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.Name, nullString(c.Description), nullString(c.Method), nullString(c.Glass), nullString(c.Garnish),
			tags, nullString(c.Notes), c.Active, now, now); err != nil {
			return fmt.Errorf("insert cocktail: %w", database.Classify(err))
		}
		return writeLines(ctx, tx, c)
	})
}

// Update replaces the cocktail row and all of its lines. found is false for
// unknown ids.
func (r *Repo) Update(ctx context.Context, c *models.Cocktail) (found bool, err error) {
	c.UpdatedAt = time.Now().UTC()

	err = r.inTx(ctx, "update cocktail", func(tx *sql.Tx) error {
		tags, err := encodeTags(c.Tags)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE cocktails
			SET name = ?, description = ?, method = ?, glass = ?, garnish = ?, tags = ?, notes = ?, active = ?, updated_at = ?
			WHERE id = ?
		`, c.Name, nullString(c.Description), nullString(c.Method), nullString(c.Glass), nullString(c.Garnish),
			tags, nullString(c.Notes), c.Active, c.UpdatedAt, c.ID)
		if err != nil {
			return fmt.Errorf("update cocktail: %w", database.Classify(err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		found = true

		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_lines WHERE cocktail_id = ?`, c.ID); err != nil {
			return fmt.Errorf("clear recipe lines: %w", err)
		}
		return writeLines(ctx, tx, c)
	})
	return found, err
}

func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM cocktails WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete cocktail: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Duplicate copies a cocktail under "<name> (copy)", or "(copy 2)" and up
// when that name is taken. It returns nil for unknown ids.
func (r *Repo) Duplicate(ctx context.Context, id string) (*models.Cocktail, error) {
	src, err := r.GetByID(ctx, id)
	if err != nil || src == nil {
		return nil, err
	}

	cp := *src
	cp.Tags = append([]string{}, src.Tags...)
	cp.Lines = append([]models.RecipeLine{}, src.Lines...)
	for n := 1; n <= 20; n++ {
		cp.Name = copyName(src.Name, n)
		err = r.Create(ctx, &cp)
		if !errors.Is(err, database.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

func copyName(name string, n int) string {
	if n == 1 {
		return name + " (copy)"
	}
	return fmt.Sprintf("%s (copy %d)", name, n)
}

func (r *Repo) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", op, err)
	}
	return nil
}

// writeLines resolves each line's ingredient and inserts it at its index.
func writeLines(ctx context.Context, q queryer, c *models.Cocktail) error {
	for i := range c.Lines {
		l := &c.Lines[i]
		l.Position = i

		var err error
		if l.IngredientID != "" {
			err = q.QueryRowContext(ctx, `SELECT id, name FROM ingredients WHERE id = ?`, l.IngredientID).
				Scan(&l.IngredientID, &l.IngredientName)
		} else {
			err = q.QueryRowContext(ctx, `SELECT id, name FROM ingredients WHERE name = ? COLLATE NOCASE`, l.IngredientName).
				Scan(&l.IngredientID, &l.IngredientName)
		}
		if err == sql.ErrNoRows {
			ref := l.IngredientID
			if ref == "" {
				ref = l.IngredientName
			}
			return fmt.Errorf("%w: %q", ErrUnknownIngredient, ref)
		}
		if err != nil {
			return fmt.Errorf("lookup ingredient: %w", err)
		}

		if _, err := q.ExecContext(ctx, `
			INSERT INTO recipe_lines (cocktail_id, position, ingredient_id, amount, unit, notes)
			VALUES (?, ?, ?, ?, ?, ?)
		`, c.ID, l.Position, l.IngredientID, l.Amount, nullString(l.Unit), nullString(l.Notes)); err != nil {
			return fmt.Errorf("insert recipe line: %w", database.Classify(err))
		}
	}
	return nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
