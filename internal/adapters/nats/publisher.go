// Package natsadapter publishes pipeline lifecycle events to NATS
// JetStream, so UI frontends can follow long recomputations.
package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mdenis/trailposter/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the event stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      "POSTER_EVENTS",
		Subjects:  []string{"poster.recompute.>"},
		Retention: nats.InterestPolicy,
		MaxAge:    1 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist — try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishRecomputeStarted(ctx context.Context, ev *domain.RecomputeEvent) error {
	return p.publish("poster.recompute.started", ev)
}

func (p *Publisher) PublishRecomputeCompleted(ctx context.Context, ev *domain.RecomputeEvent) error {
	return p.publish("poster.recompute.completed", ev)
}

func (p *Publisher) PublishRecomputeDiscarded(ctx context.Context, ev *domain.RecomputeEvent) error {
	return p.publish("poster.recompute.discarded", ev)
}

func (p *Publisher) publish(subject string, ev *domain.RecomputeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subject, data)
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
