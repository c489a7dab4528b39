package models

import "time"

// CatalogItem places a cocktail on the menu.
type CatalogItem struct {
	ID           string    `json:"id"`
	CocktailID   string    `json:"cocktail_id"`
	CocktailName string    `json:"cocktail_name"`
	Section      string    `json:"section,omitempty"`
	Position     int       `json:"position"`
	Visible      bool      `json:"visible"`
	PriceCents   *int      `json:"price_cents,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Settings struct {
	BarName         string  `json:"bar_name"`
	DefaultLayoutID string  `json:"default_layout_id,omitempty"`
	SearchThreshold float64 `json:"search_threshold"`
}
