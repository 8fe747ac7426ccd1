package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/rshade/carbonledger/internal/models"
)

// messageWriter is the part of kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes events to Kafka, keyed by client so a client's events
// stay ordered within a partition.
type KafkaSink struct {
	writer      messageWriter
	topicPrefix string
}

// NewKafkaSink returns a sink writing to brokers.
func NewKafkaSink(brokers []string, topicPrefix string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka sink: no brokers configured")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &KafkaSink{writer: w, topicPrefix: topicPrefix}, nil
}

// Publish implements Sink.
func (s *KafkaSink) Publish(ctx context.Context, e models.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Topic: Topic(s.topicPrefix, e.Type),
		Key:   []byte(e.ClientID),
		Value: data,
		Time:  e.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(e.ID)},
		},
	})
}

// Close flushes and closes the writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
