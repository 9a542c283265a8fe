package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	cloudpubsub "cloud.google.com/go/pubsub"

	"LeakScanner/internal/domain"
	"LeakScanner/internal/ports"
)

// Publisher sends events to a Pub/Sub topic with routing attributes.
type Publisher struct {
	topic  *cloudpubsub.Topic
	logger *slog.Logger
}

var _ ports.EventSink = (*Publisher)(nil)

// NewPublisher binds the topic by id.
func NewPublisher(client *cloudpubsub.Client, topicID string, logger *slog.Logger) *Publisher {
	return &Publisher{topic: client.Topic(topicID), logger: logger}
}

// Emit publishes ev as JSON and waits for the server id.
func (p *Publisher) Emit(ctx context.Context, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	attrs := map[string]string{
		"source": string(ev.Source),
		"kind":   ev.Kind,
	}
	if ev.Severity != domain.SeverityUnscored {
		attrs["severity"] = string(ev.Severity)
	}

	id, err := p.topic.Publish(ctx, &cloudpubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.ID, err)
	}
	if p.logger != nil {
		p.logger.Debug("event published", "event", ev.ID, "message", id)
	}
	return nil
}

// Stop flushes pending messages.
func (p *Publisher) Stop() {
	p.topic.Stop()
}
