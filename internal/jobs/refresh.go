package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/rshade/carbonledger/internal/metrics"
)

// TopicSummaryRefresh is the topic summary refresh jobs are published on.
const TopicSummaryRefresh = "summary.refresh"

// SystemUser is recorded as the summary author for queued refreshes.
const SystemUser = "system"

// ErrInvalidJob is returned for a job payload missing its client or time.
var ErrInvalidJob = errors.New("invalid job")

// SummaryRefresh asks for every summary containing At to be recomputed.
type SummaryRefresh struct {
	ClientID string    `json:"clientId"`
	At       time.Time `json:"at"`
	UserID   string    `json:"userId,omitempty"`
}

// Validate reports a job that cannot be processed.
func (j SummaryRefresh) Validate() error {
	if j.ClientID == "" {
		return fmt.Errorf("%w: missing clientId", ErrInvalidJob)
	}
	if j.At.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidJob)
	}
	return nil
}

// Refresher recomputes the summaries containing a point in time.
// *summary.Aggregator satisfies it.
type Refresher interface {
	RefreshContaining(ctx context.Context, clientID string, at time.Time, userID string) error
}

// Queue publishes summary refresh jobs.
type Queue struct {
	publisher message.Publisher
	topic     string
}

// NewQueue returns a queue publishing on prefix.summary.refresh, or on
// summary.refresh when prefix is empty.
func NewQueue(pub message.Publisher, prefix string) *Queue {
	return &Queue{publisher: pub, topic: topicFor(prefix)}
}

func topicFor(prefix string) string {
	if prefix == "" {
		return TopicSummaryRefresh
	}
	return prefix + "." + TopicSummaryRefresh
}

// Topic returns the topic jobs are published on.
func (q *Queue) Topic() string { return q.topic }

// ScheduleRefresh publishes one job.
func (q *Queue) ScheduleRefresh(ctx context.Context, clientID string, at time.Time) error {
	job := SummaryRefresh{ClientID: clientID, At: at.UTC(), UserID: SystemUser}
	if err := job.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("serialize job: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("client_id", clientID)
	msg.SetContext(ctx)
	if err := q.publisher.Publish(q.topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", q.topic, err)
	}
	metrics.RecordJobPublished()
	return nil
}

// Inline runs refreshes synchronously.
type Inline struct {
	Refresher Refresher
}

// ScheduleRefresh refreshes immediately.
func (i Inline) ScheduleRefresh(ctx context.Context, clientID string, at time.Time) error {
	err := i.Refresher.RefreshContaining(ctx, clientID, at, SystemUser)
	metrics.RecordJob(err)
	return err
}

// DecodeRefresh reads a job from a watermill message.
func DecodeRefresh(msg *message.Message) (SummaryRefresh, error) {
	var job SummaryRefresh
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		return job, fmt.Errorf("%w: decode %s: %v", ErrInvalidJob, msg.UUID, err)
	}
	return job, job.Validate()
}
