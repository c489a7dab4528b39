// Package printcard designs and renders printable recipe cards. A layout
// places named fields on the page with percentage coordinates; moves are
// clamped so a field never leaves the page.
package printcard

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"barbook/pkg/models"
)

// Field keys a layout can place.
const (
	FieldName        = "name"
	FieldGlass       = "glass"
	FieldIngredients = "ingredients"
	FieldMethod      = "method"
	FieldGarnish     = "garnish"
	FieldNotes       = "notes"
	FieldDescription = "description"
	FieldTags        = "tags"
)

var knownFields = []string{
	FieldName, FieldGlass, FieldIngredients, FieldMethod,
	FieldGarnish, FieldNotes, FieldDescription, FieldTags,
}

const (
	minFontSize = 4.0
	maxFontSize = 96.0
)

var (
	ErrUnknownField   = errors.New("unknown field")
	ErrDuplicateField = errors.New("field already placed")
	ErrFieldMissing   = errors.New("field not on layout")
	ErrInvalidLayout  = errors.New("invalid layout")
)

// DefaultLayout is an A6 portrait card with the usual recipe fields.
func DefaultLayout() models.PrintLayout {
	return models.PrintLayout{
		Name:         "Classic card",
		PageWidthMM:  105,
		PageHeightMM: 148,
		Fields: []models.LayoutField{
			{Key: FieldName, X: 5, Y: 4, Width: 90, FontSize: 20, Align: "center", Bold: true},
			{Key: FieldGlass, X: 5, Y: 14, Width: 90, FontSize: 10, Align: "center"},
			{Key: FieldIngredients, X: 8, Y: 22, Width: 84, FontSize: 11},
			{Key: FieldMethod, X: 8, Y: 58, Width: 84, FontSize: 10},
			{Key: FieldGarnish, X: 8, Y: 78, Width: 84, FontSize: 10},
			{Key: FieldNotes, X: 8, Y: 86, Width: 84, FontSize: 8},
		},
	}
}

// KnownField reports whether key is a placeable field.
func KnownField(key string) bool {
	return slices.Contains(knownFields, key)
}

func fieldIndex(l *models.PrintLayout, key string) int {
	return slices.IndexFunc(l.Fields, func(f models.LayoutField) bool { return f.Key == key })
}

// AddField places f, clamping its geometry onto the page.
func AddField(l *models.PrintLayout, f models.LayoutField) error {
	f.Key = strings.ToLower(strings.TrimSpace(f.Key))
	if !KnownField(f.Key) {
		return fmt.Errorf("%w: %q", ErrUnknownField, f.Key)
	}
	if fieldIndex(l, f.Key) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateField, f.Key)
	}
	if f.Width <= 0 {
		f.Width = 50
	}
	if f.FontSize == 0 {
		f.FontSize = 10
	}
	f.Width = clamp(f.Width, 1, 100)
	f.FontSize = clamp(f.FontSize, minFontSize, maxFontSize)
	f.X, f.Y = clampPosition(f.X, f.Y, f.Width)
	l.Fields = append(l.Fields, f)
	return nil
}

// MoveField drops a field at (x, y), clamped to 0 <= x <= 100-width and
// 0 <= y <= 100. It returns the position actually used.
func MoveField(l *models.PrintLayout, key string, x, y float64) (models.LayoutField, error) {
	i := fieldIndex(l, key)
	if i < 0 {
		return models.LayoutField{}, fmt.Errorf("%w: %q", ErrFieldMissing, key)
	}
	f := &l.Fields[i]
	f.X, f.Y = clampPosition(x, y, f.Width)
	return *f, nil
}

// ResizeField sets width and font size; zero leaves a value unchanged. The
// field is pulled back onto the page if the new width pushes it off.
func ResizeField(l *models.PrintLayout, key string, width, fontSize float64) (models.LayoutField, error) {
	i := fieldIndex(l, key)
	if i < 0 {
		return models.LayoutField{}, fmt.Errorf("%w: %q", ErrFieldMissing, key)
	}
	f := &l.Fields[i]
	if width != 0 {
		f.Width = clamp(width, 1, 100)
	}
	if fontSize != 0 {
		f.FontSize = clamp(fontSize, minFontSize, maxFontSize)
	}
	f.X, f.Y = clampPosition(f.X, f.Y, f.Width)
	return *f, nil
}

func RemoveField(l *models.PrintLayout, key string) error {
	i := fieldIndex(l, key)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrFieldMissing, key)
	}
	l.Fields = slices.Delete(l.Fields, i, i+1)
	return nil
}

// Validate checks a layout received from a client. Unlike the edit
// operations it rejects out-of-range values instead of clamping them.
func Validate(l models.PrintLayout) error {
	switch {
	case strings.TrimSpace(l.Name) == "":
		return fmt.Errorf("%w: name required", ErrInvalidLayout)
	case l.PageWidthMM <= 0 || l.PageHeightMM <= 0:
		return fmt.Errorf("%w: page size must be positive", ErrInvalidLayout)
	case l.PageWidthMM > 1000 || l.PageHeightMM > 1000:
		return fmt.Errorf("%w: page size must be at most 1000mm", ErrInvalidLayout)
	}

	seen := make(map[string]bool, len(l.Fields))
	for _, f := range l.Fields {
		if !KnownField(f.Key) {
			return fmt.Errorf("%w: %q", ErrUnknownField, f.Key)
		}
		if seen[f.Key] {
			return fmt.Errorf("%w: %q", ErrDuplicateField, f.Key)
		}
		seen[f.Key] = true

		switch {
		case f.Width <= 0 || f.Width > 100:
			return fmt.Errorf("%w: %s width must be in (0, 100]", ErrInvalidLayout, f.Key)
		case f.X < 0 || f.X > 100-f.Width:
			return fmt.Errorf("%w: %s x must be in [0, %g]", ErrInvalidLayout, f.Key, 100-f.Width)
		case f.Y < 0 || f.Y > 100:
			return fmt.Errorf("%w: %s y must be in [0, 100]", ErrInvalidLayout, f.Key)
		case f.FontSize < minFontSize || f.FontSize > maxFontSize:
			return fmt.Errorf("%w: %s font size must be in [%g, %g]", ErrInvalidLayout, f.Key, minFontSize, maxFontSize)
		}
		switch f.Align {
		case "", "left", "center", "right":
		default:
			return fmt.Errorf("%w: %s align must be left, center or right", ErrInvalidLayout, f.Key)
		}
	}
	return nil
}

func clampPosition(x, y, width float64) (float64, float64) {
	return clamp(x, 0, 100-width), clamp(y, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
