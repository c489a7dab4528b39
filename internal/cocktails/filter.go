package cocktails

import (
	"context"
	"strings"

	"barbook/pkg/fuzzy"
	"barbook/pkg/models"
)

// ListQuery narrows a cocktail listing. Empty fields don't filter.
type ListQuery struct {
	Q           string   // fuzzy over the name; results come back ranked
	Ingredients []string // each filter matches a line's ingredient name
	MatchAny    bool     // one ingredient filter is enough instead of all
	Tag         string
	Glass       string
	Active      *bool
	Threshold   float64 // minimum name score when Q is set
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Cocktail, error) {
	all, err := r.All(ctx, strings.TrimSpace(q.Glass), strings.ToLower(strings.TrimSpace(q.Tag)), q.Active)
	if err != nil {
		return nil, err
	}
	return Filter(all, q), nil
}

// Filter applies the ingredient and name parts of q. Without Q the input
// order is kept; with Q the best names come first.
func Filter(items []models.Cocktail, q ListQuery) []models.Cocktail {
	wanted := make([]string, 0, len(q.Ingredients))
	for _, ing := range q.Ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			wanted = append(wanted, ing)
		}
	}

	out := items
	if len(wanted) > 0 {
		out = make([]models.Cocktail, 0, len(items))
		for _, c := range items {
			if matchesIngredients(c, wanted, q.MatchAny) {
				out = append(out, c)
			}
		}
	}

	if strings.TrimSpace(q.Q) == "" {
		return out
	}
	opts := fuzzy.DefaultOptions()
	opts.Threshold = q.Threshold
	ranked := fuzzy.Search(out, q.Q, func(c models.Cocktail) string { return c.Name }, opts)

	res := make([]models.Cocktail, 0, len(ranked))
	for _, r := range ranked {
		res = append(res, r.Item)
	}
	return res
}

func matchesIngredients(c models.Cocktail, wanted []string, matchAny bool) bool {
	for _, w := range wanted {
		hit := HasIngredient(c, w)
		if matchAny && hit {
			return true
		}
		if !matchAny && !hit {
			return false
		}
	}
	return !matchAny
}

// HasIngredient reports whether some line's ingredient fuzzily matches name.
// Containment scores 0.8, so "lime" finds "Lime Juice".
func HasIngredient(c models.Cocktail, name string) bool {
	for _, l := range c.Lines {
		if fuzzy.IsMatch(name, l.IngredientName, fuzzy.DefaultMatchThreshold) {
			return true
		}
	}
	return false
}
