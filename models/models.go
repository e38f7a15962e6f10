package models

import (
	"fmt"
	"strings"
)

type Category struct {
	ID       uint64 `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"uniqueIndex;not null" json:"name"`
	Position int    `gorm:"not null" json:"position"`
}

func (c *Category) TableName() string {
	return "categories"
}

func (c *Category) Stringify() string {
	return fmt.Sprintf("Category: %s", c.Name)
}

type Cafe struct {
	ID       uint64          `gorm:"primaryKey" json:"id"`
	Name     string          `gorm:"uniqueIndex;not null" json:"name"`
	Position int             `gorm:"index;not null" json:"position"`
	Scores   []CategoryScore `gorm:"foreignKey:CafeID;constraint:OnDelete:CASCADE" json:"scores,omitempty"`
}

func (c *Cafe) TableName() string {
	return "cafes"
}

func (c *Cafe) Stringify() string {
	parts := make([]string, 0, len(c.Scores))
	for _, s := range c.Scores {
		parts = append(parts, s.Stringify())
	}

	return fmt.Sprintf("Cafe: %s, Scores: %s", c.Name, strings.Join(parts, ", "))
}

// CategoryScore is one cell of the score table. A NULL score is a missing cell.
type CategoryScore struct {
	ID       uint64   `gorm:"primaryKey" json:"id"`
	CafeID   uint64   `gorm:"index;not null" json:"cafe_id"`
	Category string   `gorm:"not null" json:"category"`
	Score    *float64 `json:"score"`
}

func (s *CategoryScore) TableName() string {
	return "cafe_category_scores"
}

func (s *CategoryScore) Stringify() string {
	if s.Score == nil {
		return s.Category + "=n/a"
	}

	return fmt.Sprintf("%s=%.2f", s.Category, *s.Score)
}

type Review struct {
	ID       uint64   `gorm:"primaryKey" json:"id"`
	CafeName string   `gorm:"index" json:"cafe_name"`
	Category string   `json:"category"`
	Score    *float64 `json:"score"`
	Text     string   `json:"text"`
}

func (r *Review) TableName() string {
	return "reviews"
}

func (r *Review) Stringify() string {
	return fmt.Sprintf("Review: %s, Category: %s, Text: %s", r.CafeName, r.Category, r.Text)
}

func All() []any {
	return []any{&Category{}, &Cafe{}, &CategoryScore{}, &Review{}}
}
