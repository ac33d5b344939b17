package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher emits engagement events over NATS. Publishing is best-effort:
// callers log failures and move on, since the durable state has already
// committed by the time an event goes out.
type Publisher struct {
	nc *nats.Conn
}

// NewPublisher connects to the NATS server at url.
func NewPublisher(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Timeout(5*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p != nil && p.nc != nil {
		_ = p.nc.Drain()
	}
}

func (p *Publisher) publish(subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return err
	}
	slog.Debug("event_published", "subject", subject)
	return nil
}

func (p *Publisher) PublishPostCreated(event PostCreatedEvent) error {
	return p.publish(PostCreated, event)
}

func (p *Publisher) PublishLikeCreated(event LikeEvent) error {
	return p.publish(LikeCreated, event)
}

func (p *Publisher) PublishLikeDeleted(event LikeEvent) error {
	return p.publish(LikeDeleted, event)
}

func (p *Publisher) PublishCommentCreated(event CommentCreatedEvent) error {
	return p.publish(CommentCreated, event)
}

func (p *Publisher) PublishFollowCreated(event FollowCreatedEvent) error {
	return p.publish(FollowCreated, event)
}
