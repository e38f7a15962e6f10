package main

import (
	"github.com/imkonsowa/cafes-rag/preferences"
	"github.com/imkonsowa/cafes-rag/ranking"
	"github.com/imkonsowa/cafes-rag/session"
	"github.com/imkonsowa/cafes-rag/vocabulary"
)

// SessionView is what the API returns for a session.
type SessionView struct {
	ID         string               `json:"id"`
	State      session.Phase        `json:"state"`
	Turn       int                  `json:"turn"`
	Weights    *preferences.Weights `json:"weights"`
	Utterances []string             `json:"utterances"`
	Prompt     string               `json:"prompt"`
}

func NewSessionView(s *session.Session) SessionView {
	return viewOf(s.ID, s.State())
}

func viewOf(id string, state session.State) SessionView {
	return SessionView{
		ID:         id,
		State:      state.Phase,
		Turn:       state.Phase.Turn(),
		Weights:    state.Weights,
		Utterances: state.Utterances,
		Prompt:     state.Phase.Prompt(),
	}
}

type UtteranceRequest struct {
	Text string `json:"text"`
}

// TurnResult is the outcome of one accepted utterance.
type TurnResult struct {
	Session   SessionView          `json:"session"`
	Extracted *preferences.Weights `json:"extracted"`
	Reply     string               `json:"reply"`
	Dropped   []string             `json:"dropped,omitempty"`
}

type RecommendationsResponse struct {
	SessionID       string                   `json:"session_id"`
	Weights         *preferences.Weights     `json:"weights"`
	Recommendations []ranking.Recommendation `json:"recommendations"`
}

type CategoriesResponse struct {
	Categories []string             `json:"categories"`
	Synonyms   []vocabulary.Synonym `json:"synonyms"`
}

// WebSocketsMessage is a frame on the chat socket. The server sends types
// prompt, debug, error and recommendations.
type WebSocketsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ClientMessage is a frame sent by the chat client: an utterance or a reset.
type ClientMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type DebugData struct {
	Reply     string               `json:"reply"`
	Extracted *preferences.Weights `json:"extracted"`
	Weights   *preferences.Weights `json:"weights"`
	Dropped   []string             `json:"dropped,omitempty"`
}

type ErrorData struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
