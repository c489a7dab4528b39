package fuzzy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds s into the form used for comparison: diacritics removed
// (NFD, combining marks dropped), punctuation and symbols dropped, whitespace
// runs collapsed to one space, trimmed. Letters are lowercased unless
// caseSensitive is set.
//
// Punctuation is removed, not replaced, so "don't" and "dont" compare equal.
func Normalize(s string, caseSensitive bool) string {
	// transform.Chain keeps state, so a fresh chain per call keeps Normalize
	// safe for concurrent callers.
	folded, _, err := transform.String(stripMarks(), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		switch {
		case isWordRune(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			if !caseSensitive {
				r = unicode.ToLower(r)
			}
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
	}
	return b.String()
}

func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// prepare applies the comparison options to one side of a pair.
func prepare(s string, opts Options) string {
	if opts.Normalize {
		return Normalize(s, opts.CaseSensitive)
	}
	s = strings.TrimSpace(s)
	if !opts.CaseSensitive {
		s = strings.ToLower(s)
	}
	return s
}
