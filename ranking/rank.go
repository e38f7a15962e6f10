// Package ranking scores the café catalog against accumulated preference
// weights and picks the evidence shown with each recommendation.
package ranking

import (
	"sort"

	"github.com/imkonsowa/cafes-rag/catalog"
	"github.com/imkonsowa/cafes-rag/preferences"
)

const (
	TopCafes      = 4
	TopCategories = 5
	TopReviews    = 3

	MinReviewScore = 0.5
)

type Ranked struct {
	Entry catalog.Entry
	Score float64
}

// Score is the weighted sum of the entry's present category scores. Weight
// categories the entry has no score for are skipped.
func Score(e catalog.Entry, w *preferences.Weights) float64 {
	var total float64
	for _, c := range w.Keys() {
		s, ok := e.Score(c)
		if !ok {
			continue
		}
		weight, _ := w.Get(c)
		total += s * weight
	}

	return total
}

// Rank orders entries by Score, highest first, and returns at most limit of
// them. Equal scores keep catalog order. limit <= 0 returns every entry.
func Rank(entries []catalog.Entry, w *preferences.Weights, limit int) []Ranked {
	ranked := make([]Ranked, len(entries))
	for i, e := range entries {
		ranked[i] = Ranked{Entry: e, Score: Score(e, w)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return ranked
}
