package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonledger/internal/emission"
	"github.com/rshade/carbonledger/internal/ingest"
	"github.com/rshade/carbonledger/internal/models"
	"github.com/rshade/carbonledger/internal/notify"
	"github.com/rshade/carbonledger/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.MemoryStore, *refreshRecorder, *notify.Recorder) {
	t.Helper()
	s := newTestStore(t)
	sched := &refreshRecorder{}
	rec := &notify.Recorder{}
	svc := NewService(s, Options{Sink: rec, Scheduler: sched, BatchSize: 2})
	return svc, s, sched, rec
}

func electricity(date string, kwh any) IngestRequest {
	return IngestRequest{
		ClientID:        testClient,
		NodeID:          testNode,
		ScopeIdentifier: testScope,
		InputType:       "manual",
		Date:            date,
		Time:            "09:00",
		Values:          map[string]any{"kwh": kwh},
	}
}

// processedOps lists the operation of every activity.processed event.
func processedOps(rec *notify.Recorder) []string {
	var ops []string
	for _, e := range rec.Events() {
		if e.Type == models.EventActivityProcessed {
			ops = append(ops, e.Data["operation"].(string))
		}
	}
	return ops
}

func TestService_IngestBuildsCumulative(t *testing.T) {
	ctx := context.Background()
	svc, _, sched, rec := newTestService(t)

	first, err := svc.Ingest(ctx, electricity("01/01/2025", 100))
	require.NoError(t, err)
	second, err := svc.Ingest(ctx, electricity("2025-01-02", "50"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusProcessed, first.Record.ProcessingStatus)
	assert.Equal(t, "01/01/2025", first.Record.Date)
	assert.Equal(t, "09:00:00", first.Record.Time)
	assert.InDelta(t, 100, first.Record.DataValues["consumed_electricity"], 1e-9)

	r := second.Record
	assert.InDelta(t, 150, r.CumulativeValues["consumed_electricity"], 1e-9)
	assert.InDelta(t, 25, r.CalculatedEmissions.Incoming.Total().CO2e, 1e-9)
	assert.InDelta(t, 75, r.CalculatedEmissions.Cumulative.Total().CO2e, 1e-9)
	assert.Equal(t, 2, r.Cumulative.EntryCount)
	assert.Equal(t, emission.Scope2, r.ScopeType)

	assert.Equal(t, 2, sched.count())
	assert.Contains(t, rec.Types(), models.EventStreamRebuilt)
	assert.Equal(t, []string{"ingest", "ingest"}, processedOps(rec))
	last := rec.Events()[len(rec.Events())-1]
	assert.Equal(t, second.Record.ID, last.Data["recordId"])
	assert.Equal(t, string(models.StatusProcessed), last.Data["status"])
}

func TestService_IngestOutOfOrder(t *testing.T) {
	ctx := context.Background()
	svc, s, _, _ := newTestService(t)

	late, err := svc.Ingest(ctx, electricity("03/01/2025", 30))
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, electricity("01/01/2025", 10))
	require.NoError(t, err)

	stored, err := s.GetActivity(ctx, late.Record.ID)
	require.NoError(t, err)
	assert.InDelta(t, 40, stored.CumulativeValues["consumed_electricity"], 1e-9)
	assert.InDelta(t, 20, stored.CalculatedEmissions.Cumulative.Total().CO2e, 1e-9)
}

func TestService_IngestRejects(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*IngestRequest)
		wantErr error
	}{
		{name: "input type", mutate: func(r *IngestRequest) { r.InputType = "fax" }, wantErr: ErrInvalidInputType},
		{name: "date", mutate: func(r *IngestRequest) { r.Date = "31/02/2025x" }, wantErr: ingest.ErrInvalidTimestamp},
		{name: "scope", mutate: func(r *IngestRequest) { r.ScopeIdentifier = "missing" }, wantErr: ErrScopeConfigNotFound},
		{name: "factor", mutate: func(r *IngestRequest) { r.ScopeIdentifier = "unconfigured" }, wantErr: ErrEmissionFactorMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, s, sched, _ := newTestService(t)
			req := electricity("01/01/2025", 1)
			tt.mutate(&req)

			_, err := svc.Ingest(ctx, req)
			require.ErrorIs(t, err, tt.wantErr)

			all, err := s.QueryActivities(ctx, store.ActivityQuery{ClientID: testClient})
			require.NoError(t, err)
			assert.Empty(t, all)
			assert.Zero(t, sched.count())
		})
	}
}

func TestService_EditActivity(t *testing.T) {
	ctx := context.Background()
	svc, s, sched, rec := newTestService(t)

	first, err := svc.Ingest(ctx, electricity("01/01/2025", 100))
	require.NoError(t, err)
	second, err := svc.Ingest(ctx, electricity("02/01/2025", 50))
	require.NoError(t, err)

	edited, err := svc.EditActivity(ctx, first.Record.ID, EditRequest{
		ClientID: testClient,
		Values:   map[string]any{"kwh": 10},
	})
	require.NoError(t, err)
	assert.InDelta(t, 10, edited.Record.DataValues["consumed_electricity"], 1e-9)
	assert.Equal(t, first.Record.Timestamp, edited.Record.Timestamp)

	later, err := s.GetActivity(ctx, second.Record.ID)
	require.NoError(t, err)
	assert.InDelta(t, 60, later.CumulativeValues["consumed_electricity"], 1e-9)
	assert.Equal(t, 3, sched.count())
	assert.Equal(t, []string{"ingest", "ingest", "edit"}, processedOps(rec))

	_, err = svc.EditActivity(ctx, first.Record.ID, EditRequest{ClientID: "globex", Values: map[string]any{"kwh": 1}})
	require.ErrorIs(t, err, ErrClientMismatch)
}

func TestService_EditMovesRecord(t *testing.T) {
	ctx := context.Background()
	svc, s, sched, _ := newTestService(t)

	first, err := svc.Ingest(ctx, electricity("01/01/2025", 100))
	require.NoError(t, err)
	second, err := svc.Ingest(ctx, electricity("02/01/2025", 50))
	require.NoError(t, err)

	_, err = svc.EditActivity(ctx, first.Record.ID, EditRequest{
		ClientID: testClient,
		Date:     "05/01/2025",
		Values:   map[string]any{"kwh": 100},
	})
	require.NoError(t, err)

	moved, err := s.GetActivity(ctx, first.Record.ID)
	require.NoError(t, err)
	other, err := s.GetActivity(ctx, second.Record.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50, other.CumulativeValues["consumed_electricity"], 1e-9)
	assert.InDelta(t, 150, moved.CumulativeValues["consumed_electricity"], 1e-9)
	// Both the old and new day are refreshed.
	assert.Equal(t, 4, sched.count())
}

func TestService_DeleteActivity(t *testing.T) {
	ctx := context.Background()
	svc, s, _, rec := newTestService(t)

	first, err := svc.Ingest(ctx, electricity("01/01/2025", 100))
	require.NoError(t, err)
	second, err := svc.Ingest(ctx, electricity("02/01/2025", 50))
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteActivity(ctx, "globex", first.Record.ID), ErrClientMismatch)
	require.NoError(t, svc.DeleteActivity(ctx, testClient, first.Record.ID))
	require.ErrorIs(t, svc.DeleteActivity(ctx, testClient, first.Record.ID), ErrActivityNotFound)

	remaining, err := s.GetActivity(ctx, second.Record.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50, remaining.CumulativeValues["consumed_electricity"], 1e-9)
	assert.InDelta(t, 25, remaining.CalculatedEmissions.Cumulative.Total().CO2e, 1e-9)
	assert.Equal(t, 1, remaining.Cumulative.EntryCount)
	assert.Contains(t, rec.Types(), models.EventActivityDeleted)
}

func TestService_RecalculateBatch(t *testing.T) {
	ctx := context.Background()
	svc, _, sched, _ := newTestService(t)

	for _, d := range []string{"01/01/2025", "02/01/2025", "03/01/2025"} {
		_, err := svc.Ingest(ctx, electricity(d, 10))
		require.NoError(t, err)
	}

	fc := testFlowchart()
	fc.Nodes[0].ScopeDetails[0].EmissionFactorValues.IPCCData.Value = 2
	require.NoError(t, svc.Flowcharts().PutFlowchart(ctx, fc))

	report, err := svc.RecalculateBatch(ctx, RecalcRequest{ClientID: testClient})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Saved)
	assert.Zero(t, report.Failed)
	// Three days were already refreshed on ingest and three more now.
	assert.Equal(t, 6, sched.count())

	out, err := svc.store.QueryActivities(ctx, store.ActivityQuery{ClientID: testClient})
	require.NoError(t, err)
	for _, r := range out {
		assert.InDelta(t, 20, r.CalculatedEmissions.Incoming.Total().CO2e, 1e-9)
	}
	assert.InDelta(t, 60, out[2].CalculatedEmissions.Cumulative.Total().CO2e, 1e-9)

	_, err = svc.RecalculateBatch(ctx, RecalcRequest{})
	require.Error(t, err)
}

func TestService_RecalculateBatchReportsFailures(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)

	_, err := svc.Ingest(ctx, electricity("01/01/2025", 10))
	require.NoError(t, err)

	fc := testFlowchart()
	fc.Nodes[0].ScopeDetails = fc.Nodes[0].ScopeDetails[1:]
	require.NoError(t, svc.Flowcharts().PutFlowchart(ctx, fc))

	report, err := svc.RecalculateBatch(ctx, RecalcRequest{ClientID: testClient})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0].Message, "scope configuration not found")
}

func TestService_IngestBatch(t *testing.T) {
	ctx := context.Background()
	svc, s, sched, rec := newTestService(t)

	bad := electricity("01/01/2025", 1)
	bad.InputType = "carrier pigeon"
	reqs := []IngestRequest{
		electricity("01/01/2025", 10),
		bad,
		electricity("02/01/2025", 20),
		electricity("02/01/2025", 5),
	}

	res, err := svc.IngestBatch(ctx, reqs)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Report.Total)
	assert.Equal(t, 3, res.Report.Saved)
	assert.Equal(t, 1, res.Report.Failed)
	require.Len(t, res.Report.Errors, 1)
	assert.Equal(t, 1, res.Report.Errors[0].Index)
	assert.True(t, res.Report.Partial())
	// One refresh per touched day.
	assert.Equal(t, 2, sched.count())
	assert.Equal(t, []string{"batch", "batch", "batch"}, processedOps(rec))

	out, err := s.QueryActivities(ctx, store.ActivityQuery{ClientID: testClient})
	require.NoError(t, err)
	require.Len(t, out, 3)
	last := out[len(out)-1]
	assert.InDelta(t, 35, last.CumulativeValues["consumed_electricity"], 1e-9)
	for _, r := range out {
		assert.Equal(t, models.StatusProcessed, r.ProcessingStatus)
	}
}
