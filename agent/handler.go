package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/imkonsowa/cafes-rag/catalog"
	"github.com/imkonsowa/cafes-rag/events"
	"github.com/imkonsowa/cafes-rag/ranking"
	"github.com/imkonsowa/cafes-rag/session"
	"github.com/imkonsowa/cafes-rag/vocabulary"
)

type Extractor interface {
	session.Extractor
	Vocabulary() *vocabulary.Vocabulary
}

type Handler struct {
	sessions    *session.Manager
	extractor   Extractor
	recommender *ranking.Recommender
	publisher   events.Publisher
}

func NewHandler(extractor Extractor, recommender *ranking.Recommender, publisher events.Publisher) *Handler {
	if publisher == nil {
		publisher = events.Nop{}
	}

	return &Handler{
		sessions:    session.NewManager(),
		extractor:   extractor,
		recommender: recommender,
		publisher:   publisher,
	}
}

func (h *Handler) Sessions() *session.Manager {
	return h.sessions
}

func (h *Handler) Catalog() *catalog.Catalog {
	return h.recommender.Catalog()
}

func (h *Handler) Vocabulary() *vocabulary.Vocabulary {
	return h.extractor.Vocabulary()
}

// Submit runs one wizard turn on s and publishes the outcome.
func (h *Handler) Submit(ctx context.Context, s *session.Session, text string) (*TurnResult, error) {
	extraction, state, err := s.Advance(ctx, h.extractor, text)
	if err != nil {
		slog.Warn("turn rejected", "session", s.ID, "error", err)
		return nil, err
	}

	view := viewOf(s.ID, state)
	slog.Info("turn accepted",
		"session", s.ID,
		"state", view.State.String(),
		"extracted", extraction.Weights.Len(),
		"dropped", len(extraction.Dropped),
	)

	h.publisher.Extracted(events.Extracted{
		SessionID: s.ID,
		Turn:      len(view.Utterances),
		Utterance: view.Utterances[len(view.Utterances)-1],
		Extracted: extraction.Weights,
		Weights:   view.Weights,
		State:     view.State,
		At:        time.Now(),
	})

	return &TurnResult{
		Session:   view,
		Extracted: extraction.Weights,
		Reply:     extraction.Reply,
		Dropped:   extraction.Dropped,
	}, nil
}

// Recommend ranks the catalog for a finished session.
func (h *Handler) Recommend(s *session.Session) (*RecommendationsResponse, error) {
	weights, err := s.FinalWeights()
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", s.ID, err)
	}

	recs := h.recommender.Recommend(weights)

	h.publisher.Recommended(events.Recommended{
		SessionID:       s.ID,
		Weights:         weights,
		Recommendations: recs,
		At:              time.Now(),
	})

	return &RecommendationsResponse{
		SessionID:       s.ID,
		Weights:         weights,
		Recommendations: recs,
	}, nil
}
