// Package session runs the three-question wizard that accumulates a user's
// weighted café preferences.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/imkonsowa/cafes-rag/preferences"
)

var (
	ErrEmptyUtterance  = errors.New("utterance is empty")
	ErrSessionComplete = errors.New("session already collected all preferences")
	ErrNotReady        = errors.New("session is still collecting preferences")
)

// State is the data a session accumulates.
type State struct {
	Phase      Phase                `json:"state"`
	Weights    *preferences.Weights `json:"weights"`
	Utterances []string             `json:"utterances"`
}

func Initial() State {
	return State{
		Phase:      Collect1,
		Weights:    preferences.NewWeights(),
		Utterances: []string{},
	}
}

// Accept is the transition for a successful extraction: weights merge by
// overwrite, the utterance is logged and the phase advances. s is not
// modified. Accept on a non-collecting phase returns s unchanged.
func (s State) Accept(utterance string, extracted *preferences.Weights) State {
	if !s.Phase.Collecting() {
		return s
	}

	weights := s.Weights.Clone()
	weights.Merge(extracted)

	utterances := make([]string, len(s.Utterances), len(s.Utterances)+1)
	copy(utterances, s.Utterances)

	return State{
		Phase:      s.Phase.Next(),
		Weights:    weights,
		Utterances: append(utterances, utterance),
	}
}

func (s State) clone() State {
	utterances := make([]string, len(s.Utterances))
	copy(utterances, s.Utterances)

	return State{
		Phase:      s.Phase,
		Weights:    s.Weights.Clone(),
		Utterances: utterances,
	}
}

type Extractor interface {
	Extract(ctx context.Context, utterance string) (*preferences.Extraction, error)
}

// Session is one user's wizard. Methods are safe for concurrent use; a
// session handles one utterance at a time.
type Session struct {
	ID string

	mu    sync.Mutex
	state State
}

func New(id string) *Session {
	return &Session{
		ID:    id,
		state: Initial(),
	}
}

// Submit extracts preferences from utterance and advances the wizard. On any
// error the session is left exactly as it was.
func (s *Session) Submit(ctx context.Context, extractor Extractor, utterance string) (*preferences.Extraction, error) {
	extraction, _, err := s.Advance(ctx, extractor, utterance)
	return extraction, err
}

// Advance is Submit that also returns a copy of the state the turn produced,
// taken before the session is unlocked.
func (s *Session) Advance(ctx context.Context, extractor Extractor, utterance string) (*preferences.Extraction, State, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, State{}, ErrEmptyUtterance
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Phase.Collecting() {
		return nil, State{}, ErrSessionComplete
	}

	extraction, err := extractor.Extract(ctx, utterance)
	if err != nil {
		return nil, State{}, err
	}

	s.state = s.state.Accept(utterance, extraction.Weights)

	return extraction, s.state.clone(), nil
}

func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Initial()
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.clone()
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Phase
}

// FinalWeights returns the accumulated weights once the wizard is done.
func (s *Session) FinalWeights() (*preferences.Weights, error) {
	state := s.State()
	if state.Phase != Recommend {
		return nil, ErrNotReady
	}

	return state.Weights, nil
}
