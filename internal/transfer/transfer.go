// Package transfer moves cocktails in and out of CSV files, one row per
// recipe line:
//
//	cocktail,glass,method,garnish,tags,ingredient,amount,unit
//
// Tags are separated by ";". A row with an empty ingredient only carries
// cocktail details.
package transfer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"barbook/internal/cocktails"
	"barbook/internal/ingredients"
	"barbook/pkg/models"
)

var Header = []string{"cocktail", "glass", "method", "garnish", "tags", "ingredient", "amount", "unit"}

// Report counts what an import did.
type Report struct {
	Rows               int               `json:"rows"`
	CocktailsCreated   int               `json:"cocktails_created"`
	CocktailsUpdated   int               `json:"cocktails_updated"`
	IngredientsCreated int               `json:"ingredients_created"`
	IngredientsMatched map[string]string `json:"ingredients_matched,omitempty"` // csv name -> stored name, fuzzy hits only
}

type Transfer struct {
	Ingredients *ingredients.Repo
	Cocktails   *cocktails.Repo
	Log         *zap.Logger
}

func New(ings *ingredients.Repo, cts *cocktails.Repo, logger *zap.Logger) *Transfer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transfer{Ingredients: ings, Cocktails: cts, Log: logger}
}

// Import reads a CSV and upserts its cocktails by case-insensitive name.
// Ingredient names that ingredients.Repo.Resolve maps to a stored ingredient
// reuse it; the rest are created. The whole file is
// parsed and validated before anything is written, so a malformed file
// changes nothing.
func (t *Transfer) Import(ctx context.Context, r io.Reader) (Report, error) {
	rep := Report{IngredientsMatched: map[string]string{}}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := readHeader(cr)
	if err != nil {
		return rep, err
	}
	for _, col := range []string{"cocktail", "ingredient"} {
		if _, ok := header[col]; !ok {
			return rep, fmt.Errorf("csv header missing %q column", col)
		}
	}

	var order []string
	byName := map[string]*models.Cocktail{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rep, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		rep.Rows++

		name := valueAt(header, row, "cocktail")
		if name == "" {
			return rep, fmt.Errorf("line %d: cocktail name required", line)
		}
		key := strings.ToLower(name)
		c, ok := byName[key]
		if !ok {
			c = &models.Cocktail{Name: name, Active: true}
			byName[key] = c
			order = append(order, key)
		}
		c.Glass = firstNonEmpty(c.Glass, valueAt(header, row, "glass"))
		c.Method = firstNonEmpty(c.Method, valueAt(header, row, "method"))
		c.Garnish = firstNonEmpty(c.Garnish, valueAt(header, row, "garnish"))
		if tags := valueAt(header, row, "tags"); tags != "" && len(c.Tags) == 0 {
			c.Tags = cocktails.CleanTags(strings.Split(tags, ";"))
		}

		ing := valueAt(header, row, "ingredient")
		if ing == "" {
			continue
		}
		amount := 0.0
		if s := valueAt(header, row, "amount"); s != "" {
			amount, err = strconv.ParseFloat(s, 64)
			if err != nil || amount < 0 {
				return rep, fmt.Errorf("line %d: invalid amount %q", line, s)
			}
		}
		c.Lines = append(c.Lines, models.RecipeLine{IngredientName: ing, Amount: amount, Unit: valueAt(header, row, "unit")})
	}

	for _, key := range order {
		if msg := cocktails.Validate(*byName[key]); msg != "" {
			return rep, fmt.Errorf("cocktail %q: %s", byName[key].Name, msg)
		}
	}

	resolved := map[string]string{} // lowercased csv name -> ingredient id
	for _, key := range order {
		c := byName[key]
		for i := range c.Lines {
			id, err := t.resolveIngredient(ctx, c.Lines[i].IngredientName, resolved, &rep)
			if err != nil {
				return rep, err
			}
			c.Lines[i].IngredientID = id
		}
		if err := t.upsert(ctx, c, &rep); err != nil {
			return rep, err
		}
	}

	t.Log.Info("csv import",
		zap.Int("rows", rep.Rows),
		zap.Int("cocktails_created", rep.CocktailsCreated),
		zap.Int("cocktails_updated", rep.CocktailsUpdated),
		zap.Int("ingredients_created", rep.IngredientsCreated),
	)
	return rep, nil
}

func (t *Transfer) resolveIngredient(ctx context.Context, name string, cache map[string]string, rep *Report) (string, error) {
	key := strings.ToLower(name)
	if id, ok := cache[key]; ok {
		return id, nil
	}

	existing, _, err := t.Ingredients.Resolve(ctx, name)
	if err != nil {
		return "", fmt.Errorf("resolve ingredient %q: %w", name, err)
	}
	if existing != nil {
		if !strings.EqualFold(existing.Name, name) {
			rep.IngredientsMatched[name] = existing.Name
		}
		cache[key] = existing.ID
		return existing.ID, nil
	}

	if msg := ingredients.ValidateName(name); msg != "" {
		return "", fmt.Errorf("ingredient %q: %s", name, msg)
	}
	ing := models.Ingredient{Name: name}
	if err := t.Ingredients.Create(ctx, &ing); err != nil {
		return "", fmt.Errorf("create ingredient %q: %w", name, err)
	}
	rep.IngredientsCreated++
	cache[key] = ing.ID
	return ing.ID, nil
}

// upsert keeps the stored description, notes and active flag, which the CSV
// doesn't carry.
func (t *Transfer) upsert(ctx context.Context, c *models.Cocktail, rep *Report) error {
	existing, err := t.Cocktails.GetByName(ctx, c.Name)
	if err != nil {
		return err
	}
	if existing == nil {
		if err := t.Cocktails.Create(ctx, c); err != nil {
			return fmt.Errorf("create cocktail %q: %w", c.Name, err)
		}
		rep.CocktailsCreated++
		return nil
	}

	c.ID = existing.ID
	c.Name = existing.Name
	c.Description = existing.Description
	c.Notes = existing.Notes
	c.Active = existing.Active
	if _, err := t.Cocktails.Update(ctx, c); err != nil {
		return fmt.Errorf("update cocktail %q: %w", c.Name, err)
	}
	rep.CocktailsUpdated++
	return nil
}

// Export writes every cocktail and returns how many were written.
func (t *Transfer) Export(ctx context.Context, w io.Writer) (int, error) {
	all, err := t.Cocktails.All(ctx, "", "", nil)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	for _, c := range all {
		base := []string{c.Name, c.Glass, c.Method, c.Garnish, strings.Join(c.Tags, ";")}
		if len(c.Lines) == 0 {
			if err := cw.Write(append(base, "", "", "")); err != nil {
				return 0, fmt.Errorf("write row: %w", err)
			}
			continue
		}
		for _, l := range c.Lines {
			row := append(append([]string{}, base...), l.IngredientName, strconv.FormatFloat(l.Amount, 'f', -1, 64), l.Unit)
			if err := cw.Write(row); err != nil {
				return 0, fmt.Errorf("write row: %w", err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}
	return len(all), nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]int, len(row))
	for i, col := range row {
		header[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, col string) string {
	i, ok := header[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
