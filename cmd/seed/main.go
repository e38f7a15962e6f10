package main

import (
	"context"
	"flag"
	"log"
	"log/slog"

	"github.com/imkonsowa/cafes-rag/catalog"
	"github.com/imkonsowa/cafes-rag/config"
	"github.com/imkonsowa/cafes-rag/store"
)

func main() {
	cfg := config.LoadConfig()

	scores := flag.String("scores", cfg.Catalog.ScoresFile, "cafe category score table")
	reviews := flag.String("reviews", cfg.Catalog.ReviewsFile, "cafe review table")
	flag.Parse()

	ctx := context.Background()

	cat, revs, err := catalog.LoadFiles(ctx, *scores, *reviews)
	if err != nil {
		log.Fatal(err)
	}
	slog.Info("loaded catalog files", "cafes", cat.Len(), "categories", len(cat.Categories), "reviews", len(revs))

	db, err := store.Open(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	if err := db.ReplaceCatalog(ctx, cat, revs); err != nil {
		log.Fatal("failed to seed catalog:", err)
	}
	slog.Info("seeded catalog", "driver", cfg.Database.Driver, "cafes", cat.Len(), "reviews", len(revs))
}
