package models

import "time"

type Ingredient struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Aliases   []string  `json:"aliases"`
	Category  string    `json:"category,omitempty"`
	ABV       *float64  `json:"abv,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Names returns the name followed by the aliases, the texts ingredient
// search matches against.
func (i Ingredient) Names() []string {
	out := make([]string, 0, 1+len(i.Aliases))
	out = append(out, i.Name)
	return append(out, i.Aliases...)
}

type Cocktail struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Method      string       `json:"method,omitempty"`
	Glass       string       `json:"glass,omitempty"`
	Garnish     string       `json:"garnish,omitempty"`
	Tags        []string     `json:"tags"`
	Notes       string       `json:"notes,omitempty"`
	Active      bool         `json:"active"`
	Lines       []RecipeLine `json:"lines"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// RecipeLine is one ingredient of a cocktail. IngredientName is filled on
// reads; writes use it only when IngredientID is empty.
type RecipeLine struct {
	Position       int     `json:"position"`
	IngredientID   string  `json:"ingredient_id"`
	IngredientName string  `json:"ingredient_name,omitempty"`
	Amount         float64 `json:"amount"`
	Unit           string  `json:"unit,omitempty"`
	Notes          string  `json:"notes,omitempty"`
}
