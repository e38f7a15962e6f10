package main

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/imkonsowa/cafes-rag/session"
)

const (
	MessagePrompt          = "prompt"
	MessageDebug           = "debug"
	MessageError           = "error"
	MessageRecommendations = "recommendations"

	ClientUtterance = "utterance"
	ClientReset     = "reset"
)

// chat hosts one session for the lifetime of the websocket connection.
func (a *Agent) chat(ctx *gin.Context) {
	c, err := a.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		slog.Error("failed to upgrade connection", "error", err)
		return
	}
	defer c.Close()

	s := a.handler.Sessions().Create()
	defer func() {
		_ = a.handler.Sessions().Delete(s.ID)
	}()

	if err := a.sendPrompt(c, s); err != nil {
		return
	}

	for {
		var msg ClientMessage
		if err := c.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("chat connection closed", "session", s.ID, "error", err)
			}
			return
		}

		switch msg.Type {
		case ClientReset:
			s.Reset()
			err = a.sendPrompt(c, s)
		case ClientUtterance:
			err = a.turn(ctx, c, s, msg.Text)
		default:
			err = c.WriteJSON(WebSocketsMessage{
				Type: MessageError,
				Data: ErrorData{Error: "unknown message type " + msg.Type, Message: s.Phase().Prompt()},
			})
		}
		if err != nil {
			slog.Error("failed to write to ws connection", "session", s.ID, "error", err)
			return
		}
	}
}

func (a *Agent) turn(ctx *gin.Context, c *websocket.Conn, s *session.Session, text string) error {
	phase := s.Phase()

	result, err := a.handler.Submit(ctx.Request.Context(), s, text)
	if err != nil {
		if werr := c.WriteJSON(WebSocketsMessage{Type: MessageError, Data: errorData(phase, err)}); werr != nil {
			return werr
		}
		if errors.Is(err, session.ErrSessionComplete) {
			return nil
		}

		return a.sendPrompt(c, s)
	}

	if err := c.WriteJSON(WebSocketsMessage{
		Type: MessageDebug,
		Data: DebugData{
			Reply:     result.Reply,
			Extracted: result.Extracted,
			Weights:   result.Session.Weights,
			Dropped:   result.Dropped,
		},
	}); err != nil {
		return err
	}

	if err := a.sendPrompt(c, s); err != nil {
		return err
	}

	if result.Session.State != session.Recommend {
		return nil
	}

	recs, err := a.handler.Recommend(s)
	if err != nil {
		return c.WriteJSON(WebSocketsMessage{Type: MessageError, Data: errorData(result.Session.State, err)})
	}

	return c.WriteJSON(WebSocketsMessage{Type: MessageRecommendations, Data: recs})
}

func (a *Agent) sendPrompt(c *websocket.Conn, s *session.Session) error {
	return c.WriteJSON(WebSocketsMessage{Type: MessagePrompt, Data: NewSessionView(s)})
}
