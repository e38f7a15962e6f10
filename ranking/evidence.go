package ranking

import (
	"sort"

	"github.com/imkonsowa/cafes-rag/catalog"
	"github.com/imkonsowa/cafes-rag/preferences"
)

type CategoryScore struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// TopCategoryScores returns the entry's scores for the weighted categories,
// highest raw score first, at most limit of them. Ties keep weight order.
func TopCategoryScores(e catalog.Entry, w *preferences.Weights, limit int) []CategoryScore {
	out := make([]CategoryScore, 0, w.Len())
	for _, c := range w.Keys() {
		s, ok := e.Score(c)
		if !ok {
			continue
		}
		out = append(out, CategoryScore{Category: c, Score: s})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out
}

type Excerpt struct {
	Category string  `json:"category"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// ReviewIndex groups reviews by café, keeping table order within each café.
type ReviewIndex struct {
	byCafe map[string][]catalog.Review
}

func NewReviewIndex(reviews []catalog.Review) *ReviewIndex {
	idx := &ReviewIndex{byCafe: make(map[string][]catalog.Review)}
	for _, r := range reviews {
		idx.byCafe[r.CafeName] = append(idx.byCafe[r.CafeName], r)
	}

	return idx
}

func (idx *ReviewIndex) For(cafe string) []catalog.Review {
	if idx == nil {
		return nil
	}

	return idx.byCafe[cafe]
}

// SelectReviews picks the excerpts backing a recommendation of cafe: complete
// reviews of a weighted category scoring at least minScore, first occurrence
// per text, highest score first, at most limit of them.
func SelectReviews(reviews []catalog.Review, cafe string, w *preferences.Weights, minScore float64, limit int) []Excerpt {
	seen := make(map[string]struct{})
	out := make([]Excerpt, 0, limit)

	for _, r := range reviews {
		if r.CafeName != cafe || !w.Has(r.Category) {
			continue
		}
		if !r.Complete() || *r.Score < minScore {
			continue
		}
		if _, dup := seen[r.Text]; dup {
			continue
		}
		seen[r.Text] = struct{}{}

		out = append(out, Excerpt{Category: r.Category, Text: r.Text, Score: *r.Score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out
}
