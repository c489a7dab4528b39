// Package fuzzy scores how closely two strings match, tolerating typos,
// accents and partial input. It backs ingredient typeahead, cocktail search
// and ingredient resolution during CSV import.
package fuzzy

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultThreshold is the minimum score Search keeps by default.
	DefaultThreshold = 0.3
	// DefaultMatchThreshold is the cut-off IsMatch callers normally use.
	DefaultMatchThreshold = 0.6

	exactScore       = 1.0
	containmentScore = 0.8
)

type Options struct {
	CaseSensitive bool
	Normalize     bool
	Threshold     float64
}

// DefaultOptions is case-insensitive, normalizing, threshold 0.3.
func DefaultOptions() Options {
	return Options{Normalize: true, Threshold: DefaultThreshold}
}

// Similarity scores a against b with DefaultOptions.
func Similarity(a, b string) float64 {
	return SimilarityWith(a, b, DefaultOptions())
}

// SimilarityWith returns a score in [0, 1]:
//
//   - 0 when either prepared string is empty
//   - 1.0 when the prepared strings are equal
//   - 0.8 when one contains the other
//   - 1 - distance/maxLen otherwise
//
// The containment score is flat on purpose: callers rank substring hits
// above most edit-distance hits.
func SimilarityWith(a, b string, opts Options) float64 {
	return score(prepare(a, opts), prepare(b, opts))
}

func score(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return exactScore
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return containmentScore
	}

	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	return 1 - float64(Levenshtein(a, b))/float64(longest)
}

// IsMatch reports whether query scores at least threshold against target.
func IsMatch(query, target string, threshold float64) bool {
	return Similarity(query, target) >= threshold
}
