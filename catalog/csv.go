package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

// Header names of the review table.
const (
	ColumnCafeName = "カフェ名"
	ColumnCategory = "カテゴリ"
	ColumnScore    = "スコア"
	ColumnReview   = "口コミ"
)

// cells the source spreadsheets use for "no value"
var missingValues = map[string]struct{}{
	"":     {},
	"nan":  {},
	"NaN":  {},
	"NA":   {},
	"N/A":  {},
	"null": {},
	"NULL": {},
	"None": {},
}

// cleanCell strips the BOM, control characters and surrounding space. Text is
// otherwise kept byte for byte.
func cleanCell(v string) string {
	v = strings.TrimPrefix(v, "\ufeff")
	v = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, v)

	return strings.TrimSpace(v)
}

func isMissing(v string) bool {
	_, ok := missingValues[v]
	return ok
}

// parseNumber reads a numeric cell. Full-width digits and signs are folded
// with NFKC first.
func parseNumber(v string) (float64, error) {
	return strconv.ParseFloat(norm.NFKC.String(v), 64)
}

func readRows(r io.Reader, name string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	if strings.EqualFold(filepath.Ext(name), ".tsv") {
		reader.Comma = '\t'
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty file", name)
	}

	for _, row := range rows {
		for i := range row {
			row[i] = cleanCell(row[i])
		}
	}

	return rows, nil
}

// ParseScores reads the café score table: a header row whose first column
// is the café name and whose remaining columns are categories.
func ParseScores(r io.Reader, name string) (*Catalog, error) {
	rows, err := readRows(r, name)
	if err != nil {
		return nil, err
	}

	header := rows[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("%s: need a name column and at least one category column", name)
	}
	categories := header[1:]

	entries := make([]Entry, 0, len(rows)-1)
	for line, row := range rows[1:] {
		if len(row) == 0 || (len(row) == 1 && row[0] == "") {
			continue
		}

		entry := Entry{
			Name:   row[0],
			Scores: make(map[string]float64, len(categories)),
		}
		for i, category := range categories {
			col := i + 1
			if col >= len(row) || isMissing(row[col]) {
				continue
			}
			v, err := parseNumber(row[col])
			if err != nil {
				return nil, fmt.Errorf("%s: line %d, column %q: %w", name, line+2, category, err)
			}
			entry.Scores[category] = v
		}
		entries = append(entries, entry)
	}

	return New(categories, entries)
}

type reviewColumns struct {
	cafe, category, score, text int
}

var positionalReviewColumns = reviewColumns{cafe: 0, category: 1, score: 2, text: 3}

func resolveReviewColumns(header []string) (reviewColumns, bool, error) {
	cols := reviewColumns{cafe: -1, category: -1, score: -1, text: -1}
	found := 0
	for i, h := range header {
		switch h {
		case ColumnCafeName:
			cols.cafe = i
		case ColumnCategory:
			cols.category = i
		case ColumnScore:
			cols.score = i
		case ColumnReview:
			cols.text = i
		default:
			continue
		}
		found++
	}

	switch {
	case found == 0 && len(header) >= 4 && isHeaderlessRow(header):
		// headerless table: positional columns, first row is data
		return positionalReviewColumns, false, nil
	case cols.cafe < 0 || cols.category < 0 || cols.score < 0 || cols.text < 0:
		return cols, true, fmt.Errorf("review header must contain %s, %s, %s and %s", ColumnCafeName, ColumnCategory, ColumnScore, ColumnReview)
	}

	return cols, true, nil
}

// isHeaderlessRow reports whether row reads as a review record rather than a
// header: its score cell is a number.
func isHeaderlessRow(row []string) bool {
	_, err := parseNumber(row[positionalReviewColumns.score])
	return err == nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) || isMissing(row[i]) {
		return ""
	}

	return row[i]
}

// ParseReviews reads the review table. Columns are located by header name;
// extra columns are ignored. Rows are kept even when fields are missing.
func ParseReviews(r io.Reader, name string) ([]Review, error) {
	rows, err := readRows(r, name)
	if err != nil {
		return nil, err
	}

	cols, hasHeader, err := resolveReviewColumns(rows[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if hasHeader {
		rows = rows[1:]
	}

	reviews := make([]Review, 0, len(rows))
	for _, row := range rows {
		review := Review{
			CafeName: cell(row, cols.cafe),
			Category: cell(row, cols.category),
			Text:     cell(row, cols.text),
		}
		if raw := cell(row, cols.score); raw != "" {
			if v, err := parseNumber(raw); err == nil {
				review.Score = &v
			}
		}
		reviews = append(reviews, review)
	}

	return reviews, nil
}

func LoadScoresFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	return ParseScores(f, filepath.Base(path))
}

func LoadReviewsFile(path string) ([]Review, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	return ParseReviews(f, filepath.Base(path))
}

// LoadFiles reads the score and review tables concurrently.
func LoadFiles(ctx context.Context, scoresPath, reviewsPath string) (*Catalog, []Review, error) {
	if scoresPath == "" {
		return nil, nil, errors.New("no score table configured")
	}

	var (
		cat     *Catalog
		reviews []Review
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cat, err = LoadScoresFile(scoresPath)
		return err
	})
	g.Go(func() error {
		if reviewsPath == "" {
			return nil
		}
		var err error
		reviews, err = LoadReviewsFile(reviewsPath)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	return cat, reviews, nil
}
