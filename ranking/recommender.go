package ranking

import (
	"github.com/imkonsowa/cafes-rag/catalog"
	"github.com/imkonsowa/cafes-rag/preferences"
)

const NoReviewsMessage = "口コミが見つかりませんでした。"

// Recommendation is the display record for one ranked café.
type Recommendation struct {
	Rank          int             `json:"rank"`
	Name          string          `json:"name"`
	Score         float64         `json:"score"`
	TopCategories []CategoryScore `json:"top_categories"`
	Reviews       []Excerpt       `json:"reviews"`
	// NoReviews is set when no excerpt passed the filters.
	NoReviews string `json:"no_reviews,omitempty"`
}

type Recommender struct {
	catalog *catalog.Catalog
	reviews *ReviewIndex
}

func NewRecommender(cat *catalog.Catalog, reviews []catalog.Review) *Recommender {
	return &Recommender{
		catalog: cat,
		reviews: NewReviewIndex(reviews),
	}
}

func (r *Recommender) Catalog() *catalog.Catalog {
	return r.catalog
}

// Recommend ranks the catalog for w and attaches evidence to the top cafés.
func (r *Recommender) Recommend(w *preferences.Weights) []Recommendation {
	ranked := Rank(r.catalog.Entries, w, TopCafes)

	out := make([]Recommendation, len(ranked))
	for i, entry := range ranked {
		name := entry.Entry.Name
		rec := Recommendation{
			Rank:          i + 1,
			Name:          name,
			Score:         entry.Score,
			TopCategories: TopCategoryScores(entry.Entry, w, TopCategories),
			Reviews:       SelectReviews(r.reviews.For(name), name, w, MinReviewScore, TopReviews),
		}
		if len(rec.Reviews) == 0 {
			rec.NoReviews = NoReviewsMessage
		}
		out[i] = rec
	}

	return out
}
