// Package catalog holds the café score table and the review table the
// recommender ranks against. Both are loaded once and never mutated.
package catalog

import (
	"fmt"
	"strings"
)

// Entry is one café with its per-category scores. A category missing from
// Scores has no score for this café.
type Entry struct {
	Name   string             `json:"name"`
	Scores map[string]float64 `json:"scores"`
}

// Score reports the café's score for category and whether it is present.
func (e Entry) Score(category string) (float64, bool) {
	v, ok := e.Scores[category]
	return v, ok
}

func (e Entry) Stringify(categories []string) string {
	var b strings.Builder
	b.WriteString("Cafe: " + e.Name)
	for _, c := range categories {
		if v, ok := e.Scores[c]; ok {
			fmt.Fprintf(&b, ", %s: %.2f", c, v)
		}
	}

	return b.String()
}

// Catalog is the ordered café table. Categories keeps the header order of
// the score columns.
type Catalog struct {
	Categories []string `json:"categories"`
	Entries    []Entry  `json:"entries"`

	byName map[string]int
}

func New(categories []string, entries []Entry) (*Catalog, error) {
	c := &Catalog{
		Categories: categories,
		Entries:    entries,
		byName:     make(map[string]int, len(entries)),
	}

	seen := make(map[string]struct{}, len(categories))
	for _, category := range categories {
		if category == "" {
			return nil, fmt.Errorf("empty category name in header")
		}
		if _, ok := seen[category]; ok {
			return nil, fmt.Errorf("duplicate category %q", category)
		}
		seen[category] = struct{}{}
	}

	for i, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("cafe at row %d has no name", i+1)
		}
		if _, ok := c.byName[e.Name]; ok {
			return nil, fmt.Errorf("duplicate cafe %q", e.Name)
		}
		for category := range e.Scores {
			if _, ok := seen[category]; !ok {
				return nil, fmt.Errorf("cafe %q scores unknown category %q", e.Name, category)
			}
		}
		c.byName[e.Name] = i
	}

	return c, nil
}

func (c *Catalog) Len() int {
	return len(c.Entries)
}

func (c *Catalog) Lookup(name string) (Entry, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Entry{}, false
	}

	return c.Entries[i], true
}

// Review is one excerpt about a café, tagged with the category it speaks to.
// Score is nil when the source had no usable value.
type Review struct {
	CafeName string   `json:"cafe_name"`
	Category string   `json:"category"`
	Score    *float64 `json:"score"`
	Text     string   `json:"text"`
}

// Complete reports whether every field of the review is present.
func (r Review) Complete() bool {
	return r.CafeName != "" && r.Category != "" && r.Text != "" && r.Score != nil
}

func (r Review) Stringify() string {
	score := "n/a"
	if r.Score != nil {
		score = fmt.Sprintf("%.2f", *r.Score)
	}

	return fmt.Sprintf("Review: %s, Category: %s, Score: %s, Text: %s", r.CafeName, r.Category, score, r.Text)
}

func Float(v float64) *float64 {
	return &v
}
