package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/imkonsowa/cafes-rag/catalog"
	"github.com/imkonsowa/cafes-rag/config"
	"github.com/imkonsowa/cafes-rag/events"
	"github.com/imkonsowa/cafes-rag/preferences"
	"github.com/imkonsowa/cafes-rag/ranking"
	"github.com/imkonsowa/cafes-rag/session"
	"github.com/imkonsowa/cafes-rag/vocabulary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testScores = `カフェ名,雰囲気,ロケーション,清潔感,ごはん
喫茶ひかり,0.9,0.3,0.8,0.6
珈琲館みどり,0.5,0.9,0.6,0.9
カフェ月,0.2,0.8,0.3,0.4
紅茶屋そら,0.7,,0.9,0.8
駅前ベーカリー,0.3,1.0,0.5,0.7
`

const testReviews = `カフェ名,カテゴリ,スコア,口コミ
珈琲館みどり,ロケーション,0.9,駅から徒歩1分
珈琲館みどり,ごはん,0.8,ケーキが絶品
`

var testReplies = map[string]string{
	"駅から近くてスイーツが美味しいカフェ": `{"アクセス":0.8,"味":0.6}`,
	"きれいなお店がいい":          `{"きれいさ": 0.7}`,
	"やっぱり駅近が一番":          `{"ロケーション": 1.0}`,
}

type recordingPublisher struct {
	mu          sync.Mutex
	extracted   []events.Extracted
	recommended []events.Recommended
}

func (p *recordingPublisher) Extracted(e events.Extracted) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.extracted = append(p.extracted, e)
}

func (p *recordingPublisher) Recommended(e events.Recommended) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recommended = append(p.recommended, e)
}

func (p *recordingPublisher) Close() {}

func newTestAgent(t *testing.T) (*Agent, *recordingPublisher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat, err := catalog.ParseScores(strings.NewReader(testScores), "scores.csv")
	require.NoError(t, err)
	reviews, err := catalog.ParseReviews(strings.NewReader(testReviews), "reviews.csv")
	require.NoError(t, err)

	asker := preferences.AskerFunc(func(ctx context.Context, prompt string) (string, error) {
		for utterance, reply := range testReplies {
			if strings.HasSuffix(prompt, "入力: "+utterance+"\n出力:") {
				return reply, nil
			}
		}
		if strings.HasSuffix(prompt, "入力: 壊れて\n出力:") {
			return "", errors.New("connection refused")
		}
		return "わかりません", nil
	})

	vocab := vocabulary.New(cat.Categories, vocabulary.DefaultSynonyms)
	publisher := &recordingPublisher{}

	return &Agent{
		config:   &config.Config{},
		handler:  NewHandler(preferences.NewExtractor(asker, vocab, 0), ranking.NewRecommender(cat, reviews), publisher),
		upgrader: websocket.Upgrader{},
	}, publisher
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

type viewResponse struct {
	ID         string             `json:"id"`
	State      string             `json:"state"`
	Turn       int                `json:"turn"`
	Weights    map[string]float64 `json:"weights"`
	Utterances []string           `json:"utterances"`
	Prompt     string             `json:"prompt"`
}

func createSession(t *testing.T, r http.Handler) viewResponse {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var view viewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	return view
}

func TestAPI_ThreeTurnsToRecommendations(t *testing.T) {
	agent, publisher := newTestAgent(t)
	r := agent.Router()

	view := createSession(t, r)
	assert.Equal(t, "COLLECT_1", view.State)
	assert.Equal(t, 1, view.Turn)
	assert.Contains(t, view.Prompt, "どんなカフェが理想ですか")

	w := doJSON(t, r, http.MethodGet, "/sessions/"+view.ID+"/recommendations", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	for _, text := range []string{"駅から近くてスイーツが美味しいカフェ", "きれいなお店がいい", "やっぱり駅近が一番"} {
		w := doJSON(t, r, http.MethodPost, "/sessions/"+view.ID+"/utterances", UtteranceRequest{Text: text})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/sessions/"+view.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "RECOMMEND", view.State)
	assert.Equal(t, map[string]float64{"ロケーション": 1.0, "ごはん": 0.6, "清潔感": 0.7}, view.Weights)
	assert.Len(t, view.Utterances, 3)

	w = doJSON(t, r, http.MethodPost, "/sessions/"+view.ID+"/utterances", UtteranceRequest{Text: "もう一つ"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodGet, "/sessions/"+view.ID+"/recommendations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var recs RecommendationsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs.Recommendations, ranking.TopCafes)
	assert.Equal(t, "珈琲館みどり", recs.Recommendations[0].Name)
	assert.InDelta(t, 1.86, recs.Recommendations[0].Score, 1e-9)
	assert.Len(t, recs.Recommendations[0].Reviews, 2)
	assert.Equal(t, "駅前ベーカリー", recs.Recommendations[1].Name)
	assert.Equal(t, ranking.NoReviewsMessage, recs.Recommendations[1].NoReviews)

	require.Len(t, publisher.extracted, 3)
	for i, e := range publisher.extracted {
		assert.Equal(t, view.ID, e.SessionID)
		assert.Equal(t, i+1, e.Turn)
		assert.Equal(t, session.Phase(i+2), e.State)
		assert.Equal(t, view.Utterances[i], e.Utterance)
	}
	assert.Equal(t, view.Weights, publisher.extracted[2].Weights.Map())
	assert.Len(t, publisher.recommended, 1)
}

func TestHandler_TurnResultMatchesEvent(t *testing.T) {
	agent, publisher := newTestAgent(t)
	s := agent.handler.Sessions().Create()

	result, err := agent.handler.Submit(context.Background(), s, "  きれいなお店がいい ")
	require.NoError(t, err)
	s.Reset()

	assert.Equal(t, session.Collect2, result.Session.State)
	assert.Equal(t, 2, result.Session.Turn)
	assert.Equal(t, []string{"きれいなお店がいい"}, result.Session.Utterances)

	require.Len(t, publisher.extracted, 1)
	e := publisher.extracted[0]
	assert.Equal(t, result.Session.State, e.State)
	assert.Equal(t, "きれいなお店がいい", e.Utterance)
	assert.Equal(t, result.Session.Weights.Map(), e.Weights.Map())
}

func TestAPI_ExtractionFailureKeepsState(t *testing.T) {
	agent, publisher := newTestAgent(t)
	r := agent.Router()
	view := createSession(t, r)

	tests := []struct {
		name    string
		text    string
		status  int
		message string
	}{
		{name: "no json", text: "こんにちは", status: http.StatusUnprocessableEntity, message: "カテゴリ抽出に失敗しました。もう一度お試しください。"},
		{name: "model down", text: "壊れて", status: http.StatusUnprocessableEntity, message: "カテゴリ抽出に失敗しました。もう一度お試しください。"},
		{name: "blank", text: "   ", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/sessions/"+view.ID+"/utterances", UtteranceRequest{Text: tt.text})
			require.Equal(t, tt.status, w.Code)

			var body ErrorData
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Message)
			}
		})
	}

	w := doJSON(t, r, http.MethodGet, "/sessions/"+view.ID, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "COLLECT_1", view.State)
	assert.Empty(t, view.Utterances)
	assert.Empty(t, publisher.extracted)
}

func TestAPI_ResetAndDelete(t *testing.T) {
	agent, _ := newTestAgent(t)
	r := agent.Router()
	view := createSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/sessions/"+view.ID+"/utterances", UtteranceRequest{Text: "きれいなお店がいい"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/sessions/"+view.ID+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "COLLECT_1", view.State)
	assert.Empty(t, view.Weights)

	w = doJSON(t, r, http.MethodDelete, "/sessions/"+view.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/sessions/"+view.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, r, http.MethodDelete, "/sessions/"+view.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_CatalogAndCategories(t *testing.T) {
	agent, _ := newTestAgent(t)
	r := agent.Router()

	w := doJSON(t, r, http.MethodGet, "/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var cats CategoriesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cats))
	assert.Equal(t, []string{"雰囲気", "ロケーション", "清潔感", "ごはん"}, cats.Categories)
	assert.Contains(t, cats.Synonyms, vocabulary.Synonym{Label: "アクセス", Category: "ロケーション"})
	for _, s := range cats.Synonyms {
		assert.Contains(t, cats.Categories, s.Category)
	}

	w = doJSON(t, r, http.MethodGet, "/cafes", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var cafes struct {
		Entries []catalog.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cafes))
	require.Len(t, cafes.Entries, 5)
	assert.Equal(t, "喫茶ひかり", cafes.Entries[0].Name)
}

func readMessage(t *testing.T, c *websocket.Conn) (string, json.RawMessage) {
	t.Helper()

	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, c.ReadJSON(&msg))
	return msg.Type, msg.Data
}

func TestChat_ThreeTurns(t *testing.T) {
	agent, _ := newTestAgent(t)
	srv := httptest.NewServer(agent.Router())
	defer srv.Close()

	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/chat", nil)
	require.NoError(t, err)
	defer c.Close()

	typ, _ := readMessage(t, c)
	require.Equal(t, MessagePrompt, typ)

	require.NoError(t, c.WriteJSON(ClientMessage{Type: ClientUtterance, Text: "こんにちは"}))
	typ, data := readMessage(t, c)
	require.Equal(t, MessageError, typ)
	var failure ErrorData
	require.NoError(t, json.Unmarshal(data, &failure))
	assert.Equal(t, "カテゴリ抽出に失敗しました。もう一度お試しください。", failure.Message)
	typ, _ = readMessage(t, c)
	require.Equal(t, MessagePrompt, typ)

	for _, text := range []string{"駅から近くてスイーツが美味しいカフェ", "きれいなお店がいい", "やっぱり駅近が一番"} {
		require.NoError(t, c.WriteJSON(ClientMessage{Type: ClientUtterance, Text: text}))

		typ, _ := readMessage(t, c)
		require.Equal(t, MessageDebug, typ)
		typ, _ = readMessage(t, c)
		require.Equal(t, MessagePrompt, typ)
	}

	typ, data = readMessage(t, c)
	require.Equal(t, MessageRecommendations, typ)
	var recs RecommendationsResponse
	require.NoError(t, json.Unmarshal(data, &recs))
	require.Len(t, recs.Recommendations, ranking.TopCafes)
	assert.Equal(t, "珈琲館みどり", recs.Recommendations[0].Name)

	require.NoError(t, c.WriteJSON(ClientMessage{Type: ClientReset}))
	typ, data = readMessage(t, c)
	require.Equal(t, MessagePrompt, typ)
	var view viewResponse
	require.NoError(t, json.Unmarshal(data, &view))
	assert.Equal(t, "COLLECT_1", view.State)
}
