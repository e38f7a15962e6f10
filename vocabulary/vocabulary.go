// Package vocabulary maps free-form preference labels onto the fixed set of
// categories the café score table is scored on.
package vocabulary

import "sort"

// DefaultSynonyms is the hand-curated label table. Targets that are not in a
// given vocabulary are simply never produced by Normalize.
var DefaultSynonyms = map[string]string{
	"静かさ":   "雰囲気",
	"アクセス":  "ロケーション",
	"おしゃれさ": "雰囲気",
	"きれいさ":  "清潔感",
	"空いてる":  "混雑",
	"空間":    "座席",

	// labels seen in review analysis
	"味":       "ごはん",
	"食事":      "ごはん",
	"料理":      "ごはん",
	"品質":      "ごはん",
	"感情":      "その他",
	"感想":      "その他",
	"満足度":     "その他",
	"パフォーマンス": "サービス",
	"演出":      "雰囲気",
	"デザイン":    "雰囲気",
	"インテリア":   "雰囲気",
	"環境":      "雰囲気",
	"見た目":     "雰囲気",
	"店":       "ロケーション",
	"店舗":      "ロケーション",
	"メニュー":    "その他",
	"商品":      "その他",
	"品揃え":     "その他",
	"評判":      "客",
	"心理状態":    "その他",
	"便利さ":     "ロケーション",
	"イベント":    "サービス",
	"カスタマイズ":  "サービス",
	"茶":       "紅茶",
	"ソース":     "ごはん",
	"スープ":     "ごはん",
}

// Vocabulary is the immutable set of valid categories plus the synonym table.
type Vocabulary struct {
	categories []string
	members    map[string]struct{}
	synonyms   map[string]string
}

// New builds a vocabulary from the ordered category names. The synonym
// table is copied.
func New(categories []string, synonyms map[string]string) *Vocabulary {
	v := &Vocabulary{
		categories: make([]string, 0, len(categories)),
		members:    make(map[string]struct{}, len(categories)),
		synonyms:   make(map[string]string, len(synonyms)),
	}
	for _, c := range categories {
		if _, ok := v.members[c]; ok {
			continue
		}
		v.members[c] = struct{}{}
		v.categories = append(v.categories, c)
	}
	for raw, target := range synonyms {
		v.synonyms[raw] = target
	}

	return v
}

// Normalize returns the category rawLabel stands for. The label is first
// looked up in the synonym table, falling back to itself; the result is only
// returned when it is a vocabulary member.
func (v *Vocabulary) Normalize(rawLabel string) (string, bool) {
	label := rawLabel
	if mapped, ok := v.synonyms[rawLabel]; ok {
		label = mapped
	}
	if !v.Contains(label) {
		return "", false
	}

	return label, true
}

func (v *Vocabulary) Contains(category string) bool {
	_, ok := v.members[category]
	return ok
}

// Categories returns the categories in header order.
func (v *Vocabulary) Categories() []string {
	out := make([]string, len(v.categories))
	copy(out, v.categories)
	return out
}

func (v *Vocabulary) Len() int {
	return len(v.categories)
}

// Synonyms returns the raw labels whose mapping lands inside the vocabulary,
// sorted, with their targets.
func (v *Vocabulary) Synonyms() []Synonym {
	out := make([]Synonym, 0, len(v.synonyms))
	for raw, target := range v.synonyms {
		if !v.Contains(target) {
			continue
		}
		out = append(out, Synonym{Label: raw, Category: target})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Label < out[j].Label
	})

	return out
}

type Synonym struct {
	Label    string `json:"label"`
	Category string `json:"category"`
}
