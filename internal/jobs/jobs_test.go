package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	mu    sync.Mutex
	jobs  []SummaryRefresh
	err   error
	calls chan SummaryRefresh
}

func newFakeRefresher() *fakeRefresher {
	return &fakeRefresher{calls: make(chan SummaryRefresh, 16)}
}

func (f *fakeRefresher) RefreshContaining(_ context.Context, clientID string, at time.Time, userID string) error {
	job := SummaryRefresh{ClientID: clientID, At: at, UserID: userID}
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	err := f.err
	f.mu.Unlock()
	f.calls <- job
	return err
}

func TestSummaryRefresh_Validate(t *testing.T) {
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		job     SummaryRefresh
		wantErr bool
	}{
		{name: "valid", job: SummaryRefresh{ClientID: "acme", At: at}},
		{name: "no client", job: SummaryRefresh{At: at}, wantErr: true},
		{name: "no time", job: SummaryRefresh{ClientID: "acme"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidJob)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestQueue_Topic(t *testing.T) {
	ch := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer ch.Close()
	assert.Equal(t, "summary.refresh", NewQueue(ch, "").Topic())
	assert.Equal(t, "carbonledger.summary.refresh", NewQueue(ch, "carbonledger").Topic())
}

func TestQueue_RejectsInvalidJob(t *testing.T) {
	ch := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer ch.Close()
	err := NewQueue(ch, "").ScheduleRefresh(context.Background(), "", time.Now())
	require.ErrorIs(t, err, ErrInvalidJob)
}

func TestInline(t *testing.T) {
	f := newFakeRefresher()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, Inline{Refresher: f}.ScheduleRefresh(context.Background(), "acme", at))
	require.Len(t, f.jobs, 1)
	assert.Equal(t, SystemUser, f.jobs[0].UserID)

	f.err = errors.New("boom")
	require.Error(t, Inline{Refresher: f}.ScheduleRefresh(context.Background(), "acme", at))
}

func TestWorker_ConsumesQueuedJobs(t *testing.T) {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	defer ch.Close()

	f := newFakeRefresher()
	w, err := NewWorker(ch, f, WorkerConfig{TopicPrefix: "cl", CloseTimeout: time.Second}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "cl.summary.refresh", w.Topic())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Serve(ctx) }()

	select {
	case <-w.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	require.NoError(t, NewQueue(ch, "cl").ScheduleRefresh(context.Background(), "acme", at))

	select {
	case job := <-f.calls:
		assert.Equal(t, "acme", job.ClientID)
		assert.True(t, job.At.Equal(at))
		assert.Equal(t, time.UTC, job.At.Location())
	case <-time.After(5 * time.Second):
		t.Fatal("job not consumed")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorker_Handle(t *testing.T) {
	ch := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer ch.Close()
	f := newFakeRefresher()
	w, err := NewWorker(ch, f, WorkerConfig{}, zerolog.Nop())
	require.NoError(t, err)

	// Malformed payloads are dropped without calling the refresher.
	require.NoError(t, w.handle(message.NewMessage("1", []byte("{not json"))))
	require.NoError(t, w.handle(message.NewMessage("2", []byte(`{"clientId":""}`))))
	assert.Empty(t, f.jobs)

	f.err = errors.New("store down")
	msg := message.NewMessage("3", []byte(`{"clientId":"acme","at":"2025-03-01T00:00:00Z"}`))
	require.Error(t, w.handle(msg))
	assert.Len(t, f.jobs, 1)
}

func TestNewWorker_RequiresDependencies(t *testing.T) {
	_, err := NewWorker(nil, newFakeRefresher(), WorkerConfig{}, zerolog.Nop())
	require.Error(t, err)
}
