// Package store persists the café catalog and reviews with gorm, on
// Postgres or SQLite.
package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/imkonsowa/cafes-rag/catalog"
	"github.com/imkonsowa/cafes-rag/config"
	"github.com/imkonsowa/cafes-rag/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const batchSize = 500

type Store struct {
	db *gorm.DB
}

func Open(cfg config.Database) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "postgres":
		dialector = postgres.Open(cfg.ConnStr())
	case "sqlite":
		dialector = sqlite.Open(cfg.ConnStr())
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	return New(dialector)
}

func New(dialector gorm.Dialector) (*Store, error) {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// ReplaceCatalog swaps the stored catalog and reviews for the given ones in
// a single transaction.
func (s *Store) ReplaceCatalog(ctx context.Context, cat *catalog.Catalog, reviews []catalog.Review) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []any{&models.CategoryScore{}, &models.Cafe{}, &models.Category{}, &models.Review{}} {
			if err := tx.Where("1 = 1").Delete(table).Error; err != nil {
				return fmt.Errorf("failed to clear %T: %w", table, err)
			}
		}

		categories := make([]models.Category, len(cat.Categories))
		for i, name := range cat.Categories {
			categories[i] = models.Category{Name: name, Position: i}
		}
		if len(categories) > 0 {
			if err := tx.CreateInBatches(&categories, batchSize).Error; err != nil {
				return fmt.Errorf("failed to create categories: %w", err)
			}
		}

		cafes := make([]models.Cafe, len(cat.Entries))
		for i, e := range cat.Entries {
			cafes[i] = cafeFromEntry(e, cat.Categories, i)
		}
		if len(cafes) > 0 {
			if err := tx.CreateInBatches(&cafes, batchSize).Error; err != nil {
				return fmt.Errorf("failed to create cafes: %w", err)
			}
		}

		rows := make([]models.Review, len(reviews))
		for i, r := range reviews {
			rows[i] = models.Review{
				CafeName: r.CafeName,
				Category: r.Category,
				Score:    r.Score,
				Text:     r.Text,
			}
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(&rows, batchSize).Error; err != nil {
				return fmt.Errorf("failed to create reviews: %w", err)
			}
		}

		return nil
	})
}

// LoadCatalog reads the stored catalog back in seeding order.
func (s *Store) LoadCatalog(ctx context.Context) (*catalog.Catalog, []catalog.Review, error) {
	db := s.db.WithContext(ctx)

	var categories []models.Category
	if err := db.Order("position").Find(&categories).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to list categories: %w", err)
	}

	var cafes []models.Cafe
	if err := db.Preload("Scores").Order("position").Find(&cafes).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to list cafes: %w", err)
	}

	var rows []models.Review
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}

	entries := make([]catalog.Entry, len(cafes))
	for i, c := range cafes {
		entries[i] = entryFromCafe(c)
	}

	cat, err := catalog.New(names, entries)
	if err != nil {
		return nil, nil, fmt.Errorf("stored catalog is invalid: %w", err)
	}

	reviews := make([]catalog.Review, len(rows))
	for i, r := range rows {
		reviews[i] = catalog.Review{
			CafeName: r.CafeName,
			Category: r.Category,
			Score:    r.Score,
			Text:     r.Text,
		}
	}

	return cat, reviews, nil
}

func cafeFromEntry(e catalog.Entry, categories []string, position int) models.Cafe {
	cafe := models.Cafe{
		Name:     e.Name,
		Position: position,
		Scores:   make([]models.CategoryScore, 0, len(e.Scores)),
	}
	for _, c := range categories {
		score, ok := e.Score(c)
		if !ok {
			continue
		}
		cafe.Scores = append(cafe.Scores, models.CategoryScore{Category: c, Score: catalog.Float(score)})
	}

	return cafe
}

func entryFromCafe(c models.Cafe) catalog.Entry {
	e := catalog.Entry{
		Name:   c.Name,
		Scores: make(map[string]float64, len(c.Scores)),
	}
	for _, s := range c.Scores {
		if s.Score == nil {
			continue
		}
		e.Scores[s.Category] = *s.Score
	}

	return e
}
