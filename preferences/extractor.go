// Package preferences turns a free-text café request into category weights
// by asking a language model and normalizing its answer.
package preferences

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/imkonsowa/cafes-rag/vocabulary"
)

// Asker is the language model: one prompt in, raw text out.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

type AskerFunc func(ctx context.Context, prompt string) (string, error)

func (f AskerFunc) Ask(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Extraction is the result of one successful call.
type Extraction struct {
	Weights *Weights `json:"weights"`
	Reply   string   `json:"reply"`
	// Dropped lists model labels that did not normalize to a category.
	Dropped []string `json:"dropped,omitempty"`
}

// ReplyCache stores model replies by prompt hash.
type ReplyCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type Extractor struct {
	asker   Asker
	vocab   *vocabulary.Vocabulary
	timeout time.Duration

	cache    ReplyCache
	cacheTTL time.Duration
}

type Option func(*Extractor)

// WithCache reuses replies that previously parsed cleanly for the same prompt.
func WithCache(cache ReplyCache, ttl time.Duration) Option {
	return func(e *Extractor) {
		e.cache = cache
		e.cacheTTL = ttl
	}
}

// NewExtractor returns an extractor bound to vocab. A positive timeout bounds
// each model call.
func NewExtractor(asker Asker, vocab *vocabulary.Vocabulary, timeout time.Duration, opts ...Option) *Extractor {
	e := &Extractor{
		asker:   asker,
		vocab:   vocab,
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Extractor) Vocabulary() *vocabulary.Vocabulary {
	return e.vocab
}

// Extract asks the model for the categories behind utterance. It never
// retries; every failure is an *ExtractionError.
func (e *Extractor) Extract(ctx context.Context, utterance string) (*Extraction, error) {
	prompt := BuildPrompt(utterance, e.vocab.Categories())
	key := promptKey(prompt)

	if cached, ok := e.cached(ctx, key); ok {
		if out, err := e.Parse(cached); err == nil {
			return out, nil
		}
	}

	askCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		askCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	reply, err := e.asker.Ask(askCtx, prompt)
	if err != nil {
		return nil, extractionError(ErrModelCall, err, "")
	}

	out, err := e.Parse(reply)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, reply, e.cacheTTL); err != nil {
			slog.Warn("failed to cache model reply", "error", err)
		}
	}

	return out, nil
}

func (e *Extractor) cached(ctx context.Context, key string) (string, bool) {
	if e.cache == nil {
		return "", false
	}

	reply, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("failed to read cached model reply", "error", err)
		return "", false
	}

	return reply, ok
}

func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// Parse applies the extraction rules to a raw model reply.
func (e *Extractor) Parse(reply string) (*Extraction, error) {
	body, ok := payload(reply)
	if !ok {
		return nil, extractionError(ErrNoJSON, nil, reply)
	}

	pairs, err := decodeObject([]byte(body))
	if err != nil {
		return nil, extractionError(ErrMalformedJSON, err, reply)
	}

	out := &Extraction{
		Weights: NewWeights(),
		Reply:   reply,
	}
	for _, p := range pairs {
		category, ok := e.vocab.Normalize(p.key)
		if !ok {
			out.Dropped = append(out.Dropped, p.key)
			continue
		}

		v, err := p.number()
		if errors.Is(err, strconv.ErrRange) {
			return nil, extractionError(ErrWeightOutOfRange, fmt.Errorf("%q: %w", p.key, err), reply)
		}
		if err != nil {
			return nil, extractionError(ErrNonNumericWeight, fmt.Errorf("%q: %w", p.key, err), reply)
		}
		out.Weights.Set(category, v)
	}

	return out, nil
}
