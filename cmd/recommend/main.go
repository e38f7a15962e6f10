package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/imkonsowa/cafes-rag/catalog"
	"github.com/imkonsowa/cafes-rag/config"
	"github.com/imkonsowa/cafes-rag/llm"
	"github.com/imkonsowa/cafes-rag/preferences"
	"github.com/imkonsowa/cafes-rag/ranking"
	"github.com/imkonsowa/cafes-rag/session"
	"github.com/imkonsowa/cafes-rag/vocabulary"
)

const resetCommand = "/reset"

func main() {
	cfg := config.LoadConfig()
	ctx := context.Background()

	cat, reviews, err := catalog.LoadFiles(ctx, cfg.Catalog.ScoresFile, cfg.Catalog.ReviewsFile)
	if err != nil {
		log.Fatal(err)
	}

	model, err := llm.New(cfg.LLM)
	if err != nil {
		log.Fatal(err)
	}

	vocab := vocabulary.New(cat.Categories, vocabulary.DefaultSynonyms)
	extractor := preferences.NewExtractor(model, vocab, cfg.LLM.Timeout)

	if err := run(ctx, os.Stdin, os.Stdout, extractor, ranking.NewRecommender(cat, reviews)); err != nil {
		log.Fatal(err)
	}
}

// run drives one wizard over in and out. It returns when in is exhausted or
// recommendations have been printed.
func run(ctx context.Context, in io.Reader, out io.Writer, extractor session.Extractor, recommender *ranking.Recommender) error {
	s := session.New("terminal")
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, s.Phase().Prompt())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == resetCommand {
			s.Reset()
			fmt.Fprintln(out, s.Phase().Prompt())
			continue
		}

		phase := s.Phase()
		extraction, err := s.Submit(ctx, extractor, line)
		switch {
		case errors.Is(err, session.ErrEmptyUtterance):
			fmt.Fprintln(out, phase.Prompt())
			continue
		case err != nil:
			fmt.Fprintln(out, phase.FailureMessage())
			fmt.Fprintln(out, phase.Prompt())
			continue
		}

		fmt.Fprintf(out, "抽出: %s\n", formatWeights(extraction.Weights))
		fmt.Fprintln(out, s.Phase().Prompt())

		if s.Phase() != session.Recommend {
			continue
		}

		weights, err := s.FinalWeights()
		if err != nil {
			return err
		}
		printRecommendations(out, recommender.Recommend(weights))

		return nil
	}

	return scanner.Err()
}

func formatWeights(w *preferences.Weights) string {
	parts := make([]string, 0, w.Len())
	for _, k := range w.Keys() {
		v, _ := w.Get(k)
		parts = append(parts, fmt.Sprintf("%s=%.2f", k, v))
	}

	return strings.Join(parts, ", ")
}

func printRecommendations(out io.Writer, recs []ranking.Recommendation) {
	for _, rec := range recs {
		fmt.Fprintf(out, "\n%d. %s (スコア: %.2f)\n", rec.Rank, rec.Name, rec.Score)
		for _, c := range rec.TopCategories {
			fmt.Fprintf(out, "   - %s: %.2f\n", c.Category, c.Score)
		}
		if rec.NoReviews != "" {
			fmt.Fprintf(out, "   %s\n", rec.NoReviews)
			continue
		}
		for _, r := range rec.Reviews {
			fmt.Fprintf(out, "   「%s」(%s, %.2f)\n", r.Text, r.Category, r.Score)
		}
	}
}
