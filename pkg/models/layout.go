package models

import "time"

// PrintLayout is a recipe card design. Field coordinates are percentages of
// the page, so the same layout prints on any page size.
type PrintLayout struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	PageWidthMM  float64       `json:"page_width_mm"`
	PageHeightMM float64       `json:"page_height_mm"`
	Fields       []LayoutField `json:"fields"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type LayoutField struct {
	Key      string  `json:"key"` // name, glass, ingredients, method, garnish, notes, description, tags
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	FontSize float64 `json:"font_size"` // pt
	Align    string  `json:"align,omitempty"`
	Bold     bool    `json:"bold,omitempty"`
}
