package notify

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/rshade/carbonledger/internal/models"
)

// Topic returns the topic an event type is published on.
func Topic(prefix, eventType string) string {
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}

// WatermillSink publishes events as JSON watermill messages, one topic per
// event type.
type WatermillSink struct {
	publisher   message.Publisher
	topicPrefix string
	owned       *Transport
}

// NewWatermillSink wraps pub. The caller keeps ownership of pub.
func NewWatermillSink(pub message.Publisher, topicPrefix string) *WatermillSink {
	return &WatermillSink{publisher: pub, topicPrefix: topicPrefix}
}

// Publish implements Sink.
func (s *WatermillSink) Publish(ctx context.Context, e models.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}
	msg := message.NewMessage(e.ID, data)
	msg.Metadata.Set("event_type", e.Type)
	msg.Metadata.Set("client_id", e.ClientID)
	msg.SetContext(ctx)
	return s.publisher.Publish(Topic(s.topicPrefix, e.Type), msg)
}

// Close closes the transport when the sink created it.
func (s *WatermillSink) Close() error {
	if s.owned != nil {
		return s.owned.Close()
	}
	return nil
}

// DecodeEvent reads an event from a watermill message payload.
func DecodeEvent(msg *message.Message) (models.Event, error) {
	var e models.Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return e, fmt.Errorf("decode event %s: %w", msg.UUID, err)
	}
	return e, nil
}
