package fuzzy

import (
	"slices"
	"strings"
)

// Result is one ranked search hit.
type Result[T any] struct {
	Item        T       `json:"item"`
	Score       float64 `json:"score"`
	MatchedText string  `json:"matched_text"`
}

// Search ranks items by the similarity of text(item) to query. Items scoring
// below opts.Threshold are dropped; equal scores keep their input order.
// A blank query returns no results whatever the threshold.
func Search[T any](items []T, query string, text func(T) string, opts Options) []Result[T] {
	return SearchMulti(items, query, func(item T) []string {
		return []string{text(item)}
	}, opts)
}

// SearchMulti is Search for items exposing several texts (a name and its
// aliases, say). An item scores the best of its texts and MatchedText is the
// first text reaching that score.
func SearchMulti[T any](items []T, query string, texts func(T) []string, opts Options) []Result[T] {
	if strings.TrimSpace(query) == "" || len(items) == 0 {
		return []Result[T]{}
	}
	q := prepare(query, opts)
	if q == "" {
		return []Result[T]{}
	}

	out := make([]Result[T], 0, len(items))
	for _, item := range items {
		candidates := texts(item)
		if len(candidates) == 0 {
			continue
		}
		best, matched := 0.0, ""
		for i, candidate := range candidates {
			s := score(q, prepare(candidate, opts))
			if i == 0 || s > best {
				best, matched = s, candidate
			}
		}
		if best < opts.Threshold {
			continue
		}
		out = append(out, Result[T]{Item: item, Score: best, MatchedText: matched})
	}

	slices.SortStableFunc(out, func(a, b Result[T]) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	return out
}
