package rpc

import (
	"barbook/internal/catalog"
	"barbook/pkg/fuzzy"
	"barbook/pkg/models"
)

type SearchIngredientsRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
	// Threshold overrides the bar's search threshold when set.
	Threshold *float64 `json:"threshold,omitempty"`
}

type SearchIngredientsResponse struct {
	Items []fuzzy.Result[models.Ingredient] `json:"items"`
}

type ListCocktailsRequest struct {
	Q           string   `json:"q,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
	MatchAny    bool     `json:"match_any,omitempty"`
	Tag         string   `json:"tag,omitempty"`
	Glass       string   `json:"glass,omitempty"`
	ActiveOnly  bool     `json:"active_only,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	Offset      int      `json:"offset,omitempty"`
}

type ListCocktailsResponse struct {
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Items  []models.Cocktail `json:"items"`
}

type GetCocktailRequest struct {
	ID string `json:"id"`
}

type GetCocktailResponse struct {
	Cocktail models.Cocktail `json:"cocktail"`
}

type GetCatalogRequest struct {
	IncludeHidden bool `json:"include_hidden,omitempty"`
}

type GetCatalogResponse struct {
	Items    []models.CatalogItem `json:"items"`
	Sections []catalog.Section    `json:"sections"`
}
