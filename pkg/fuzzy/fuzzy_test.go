package fuzzy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "", 0},
		{"", "gin", 3},
		{"gin", "", 3},
		{"gin", "gin", 0},
		{"flaw", "lawn", 2},
		{"café", "cafe", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b), "Levenshtein(%q, %q)", tt.a, tt.b)
		assert.Equal(t, tt.want, Levenshtein(tt.b, tt.a), "Levenshtein(%q, %q)", tt.b, tt.a)
	}
}

func TestSimilarity_EditDistanceFormula(t *testing.T) {
	got := Similarity("kitten", "sitting")
	assert.InDelta(t, 1-3.0/7.0, got, 1e-9)
}

func TestSimilarity_Reflexive(t *testing.T) {
	for _, s := range []string{"gin", "Lime Juice", "Crème de Cassis", "a", "Angostura  bitters"} {
		assert.Equal(t, 1.0, Similarity(s, s), "Similarity(%q, %q)", s, s)
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"kitten", "sitting"},
		{"lime", "lime juice"},
		{"gin", "tonic"},
		{"Cointreau", "triple sec"},
		{"rye", "rye whiskey"},
	}
	for _, p := range pairs {
		assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), "pair %v", p)
	}
}

func TestSimilarity_Range(t *testing.T) {
	words := []string{"", "a", "gin", "Old Fashioned", "!!!", "mezcal", "maraschino liqueur", "ß"}
	for _, a := range words {
		for _, b := range words {
			s := Similarity(a, b)
			assert.False(t, math.IsNaN(s))
			assert.GreaterOrEqual(t, s, 0.0, "Similarity(%q, %q)", a, b)
			assert.LessOrEqual(t, s, 1.0, "Similarity(%q, %q)", a, b)
		}
	}
}

func TestSimilarity_Containment(t *testing.T) {
	assert.Equal(t, 0.8, Similarity("lime", "lime juice"))
	assert.Equal(t, 0.8, Similarity("lime juice", "lime"))

	// the raw distance score would be 1 - 6/10
	assert.NotEqual(t, 1-6.0/10.0, Similarity("lime", "lime juice"))
}

func TestSimilarity_Case(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Lime", "lime"))

	opts := DefaultOptions()
	opts.CaseSensitive = true
	assert.Less(t, SimilarityWith("Lime", "lime", opts), 1.0)
}

func TestSimilarity_Diacritics(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("limé", "lime"))
	assert.Equal(t, 1.0, Similarity("Crème de Menthe", "creme de menthe"))

	raw := DefaultOptions()
	raw.Normalize = false
	assert.Less(t, SimilarityWith("limé", "lime", raw), 1.0)
}

func TestSimilarity_Punctuation(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("don't", "dont"))
	assert.Equal(t, 1.0, Similarity("St-Germain", "stgermain"))
}

func TestSimilarity_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("   ", "\t"))
	assert.Equal(t, 0.0, Similarity("?!", "..."))
	assert.Equal(t, 0.0, Similarity("", "gin"))
}

func TestSimilarity_SingleCharacter(t *testing.T) {
	assert.Equal(t, 0.8, Similarity("g", "gin"))
	assert.Equal(t, 1.0, Similarity("g", "G"))
	assert.Equal(t, 0.0, Similarity("x", "y"))
}

func TestIsMatch(t *testing.T) {
	assert.True(t, IsMatch("gin", "gin", DefaultMatchThreshold))
	assert.False(t, IsMatch("gin", "tonic", DefaultMatchThreshold))
	assert.True(t, IsMatch("lime", "Lime Juice", DefaultMatchThreshold))
	assert.True(t, IsMatch("angostura", "angostrua", DefaultMatchThreshold))
}
