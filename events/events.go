// Package events publishes session milestones to NATS JetStream.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/imkonsowa/cafes-rag/config"
	"github.com/imkonsowa/cafes-rag/preferences"
	"github.com/imkonsowa/cafes-rag/ranking"
	"github.com/imkonsowa/cafes-rag/session"
	"github.com/nats-io/nats.go"
)

const (
	KindExtracted   = "extracted"
	KindRecommended = "recommended"
)

// Extracted is emitted after every successful turn.
type Extracted struct {
	SessionID string               `json:"session_id"`
	Turn      int                  `json:"turn"`
	Utterance string               `json:"utterance"`
	Extracted *preferences.Weights `json:"extracted"`
	Weights   *preferences.Weights `json:"weights"`
	State     session.Phase        `json:"state"`
	At        time.Time            `json:"at"`
}

// Recommended is emitted when a session's recommendations are produced.
type Recommended struct {
	SessionID       string                   `json:"session_id"`
	Weights         *preferences.Weights     `json:"weights"`
	Recommendations []ranking.Recommendation `json:"recommendations"`
	At              time.Time                `json:"at"`
}

type Publisher interface {
	Extracted(e Extracted)
	Recommended(e Recommended)
	Close()
}

// Nop drops every event.
type Nop struct{}

func (Nop) Extracted(Extracted)     {}
func (Nop) Recommended(Recommended) {}
func (Nop) Close()                  {}

// closeTimeout bounds how long Close waits for outstanding acks.
const closeTimeout = 5 * time.Second

type jetStream interface {
	PublishAsync(subject string, data []byte, opts ...nats.PubOpt) (nats.PubAckFuture, error)
	PublishAsyncComplete() <-chan struct{}
}

type NatsPublisher struct {
	conn   *nats.Conn
	js     jetStream
	prefix string

	done      chan struct{}
	closeOnce sync.Once
}

func newNatsPublisher(conn *nats.Conn, js jetStream, prefix string) *NatsPublisher {
	return &NatsPublisher{
		conn:   conn,
		js:     js,
		prefix: prefix,
		done:   make(chan struct{}),
	}
}

func NewNatsPublisher(cfg config.Nats) (*NatsPublisher, error) {
	nc, err := nats.Connect(cfg.ConnStr())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.SubjectPrefix + ".>"},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    time.Hour * 24 * 7,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream %s: %w", cfg.Stream, err)
	}

	return newNatsPublisher(nc, js, cfg.SubjectPrefix), nil
}

func (p *NatsPublisher) Subject(kind string) string {
	return p.prefix + "." + kind
}

func (p *NatsPublisher) Extracted(e Extracted) {
	p.publish(KindExtracted, e)
}

func (p *NatsPublisher) Recommended(e Recommended) {
	p.publish(KindRecommended, e)
}

func (p *NatsPublisher) publish(kind string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal event", "kind", kind, "error", err)
		return
	}

	subject := p.Subject(kind)
	fut, err := p.js.PublishAsync(subject, data)
	if err != nil {
		slog.Error("failed to publish event", "subject", subject, "error", err)
		return
	}

	go p.watch(subject, fut)
}

func (p *NatsPublisher) watch(subject string, fut nats.PubAckFuture) {
	select {
	case <-fut.Ok():
	case err := <-fut.Err():
		slog.Error("event was not acknowledged", "subject", subject, "error", err)
	case <-p.done:
	}
}

// Close waits for outstanding acks, up to closeTimeout, then drains the
// connection.
func (p *NatsPublisher) Close() {
	p.closeOnce.Do(func() {
		select {
		case <-p.js.PublishAsyncComplete():
		case <-time.After(closeTimeout):
			slog.Warn("closing with unacknowledged events", "timeout", closeTimeout)
		}
		close(p.done)

		if p.conn == nil {
			return
		}
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
	})
}
