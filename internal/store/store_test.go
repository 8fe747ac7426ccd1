package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonledger/internal/emission"
	"github.com/rshade/carbonledger/internal/models"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	b, err := OpenBadger("")
	require.NoError(t, err)
	sq, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	sqFile, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)

	stores := map[string]Store{
		"memory":      NewMemoryStore(),
		"badger":      b,
		"sqlite":      sq,
		"sqlite-file": sqFile,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func record(id string, ts time.Time, status models.ProcessingStatus) *models.ActivityRecord {
	return &models.ActivityRecord{
		ID:               id,
		ClientID:         "client-1",
		NodeID:           "node-1",
		ScopeIdentifier:  "boiler",
		ScopeType:        emission.Scope1,
		InputType:        models.InputManual,
		Timestamp:        ts,
		DataValues:       map[string]float64{"fuelConsumed": 10},
		ProcessingStatus: status,
	}
}

func TestStore_Activities(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			// Same timestamp for b and c: order falls back to ID.
			require.NoError(t, s.PutActivity(ctx, record("c", base.Add(time.Hour), models.StatusProcessed)))
			require.NoError(t, s.PutActivity(ctx, record("a", base, models.StatusProcessed)))
			require.NoError(t, s.PutActivity(ctx, record("b", base.Add(time.Hour), models.StatusPending)))
			other := record("z", base, models.StatusProcessed)
			other.NodeID = "node-2"
			require.NoError(t, s.PutActivity(ctx, other))

			got, err := s.GetActivity(ctx, "a")
			require.NoError(t, err)
			assert.InDelta(t, 10, got.DataValues["fuelConsumed"], 1e-12)
			assert.True(t, base.Equal(got.Timestamp))

			stream, err := s.ListStream(ctx, got.Stream())
			require.NoError(t, err)
			require.Len(t, stream, 3)
			assert.Equal(t, []string{"a", "b", "c"}, ids(stream))

			processed, err := s.QueryActivities(ctx, ActivityQuery{
				ClientID: "client-1",
				Status:   models.StatusProcessed,
				From:     base,
				To:       base.Add(time.Hour),
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "z"}, ids(processed))

			got.DataValues["fuelConsumed"] = 99
			require.NoError(t, s.PutActivity(ctx, got))
			again, err := s.GetActivity(ctx, "a")
			require.NoError(t, err)
			assert.InDelta(t, 99, again.DataValues["fuelConsumed"], 1e-12)

			require.NoError(t, s.DeleteActivity(ctx, "a"))
			_, err = s.GetActivity(ctx, "a")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.DeleteActivity(ctx, "a"), ErrNotFound)

			stream, err = s.ListStream(ctx, got.Stream())
			require.NoError(t, err)
			assert.Equal(t, []string{"b", "c"}, ids(stream))
		})
	}
}

func TestStore_RejectsIncompleteRecord(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := s.PutActivity(context.Background(), &models.ActivityRecord{ID: "x"})
			assert.ErrorIs(t, err, models.ErrMissingField)
		})
	}
}

func TestStore_Flowchart(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetActiveFlowchart(ctx, "client-1")
			assert.ErrorIs(t, err, ErrNotFound)

			f := &models.Flowchart{ClientID: "client-1", IsActive: true, Nodes: []models.Node{{
				ID: "node-1", Department: "Ops",
				ScopeDetails: []emission.ScopeConfig{{ScopeIdentifier: "boiler", ScopeType: emission.Scope1}},
			}}}
			require.NoError(t, s.PutFlowchart(ctx, f))

			inactive := &models.Flowchart{ClientID: "client-1", IsActive: false}
			require.NoError(t, s.PutFlowchart(ctx, inactive))

			got, err := s.GetActiveFlowchart(ctx, "client-1")
			require.NoError(t, err)
			require.Len(t, got.Nodes, 1)
			assert.Equal(t, "Ops", got.Nodes[0].Department)
		})
	}
}

func TestStore_SummaryVersioning(t *testing.T) {
	ctx := context.Background()
	p := models.Period{Type: models.PeriodMonthly, Year: 2024, Month: 3}
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			sum := models.NewEmissionSummary("client-1", p)
			sum.TotalEmissions.CO2e = 1.5
			created, err := s.UpsertSummary(ctx, sum)
			require.NoError(t, err)
			assert.True(t, created)
			assert.Equal(t, 1, sum.Metadata.Version)

			sum2 := models.NewEmissionSummary("client-1", p)
			created, err = s.UpsertSummary(ctx, sum2)
			require.NoError(t, err)
			assert.False(t, created)
			assert.Equal(t, 2, sum2.Metadata.Version)

			got, err := s.GetSummary(ctx, "client-1", p)
			require.NoError(t, err)
			assert.Equal(t, 2, got.Metadata.Version)
			assert.Zero(t, got.TotalEmissions.CO2e)
			assert.Contains(t, got.ByScope, string(emission.Scope2))

			_, err = s.UpsertSummary(ctx, models.NewEmissionSummary("client-1", models.Period{Type: models.PeriodAllTime}))
			require.NoError(t, err)
			_, err = s.UpsertSummary(ctx, models.NewEmissionSummary("client-2", p))
			require.NoError(t, err)
			list, err := s.ListSummaries(ctx, "client-1")
			require.NoError(t, err)
			assert.Len(t, list, 2)

			_, err = s.GetSummary(ctx, "client-1", models.Period{Type: models.PeriodYearly, Year: 2020})
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_Targets(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			target := &models.SbtiTarget{
				ClientID: "client-1", TargetType: models.TargetNearTerm, BaseYear: 2020, TargetYear: 2030,
				Trajectory: []models.TrajectoryPoint{{Year: 2020, TargetEmission: 1000}},
			}
			require.NoError(t, s.PutTarget(ctx, target))
			require.NoError(t, s.PutTarget(ctx, &models.SbtiTarget{ClientID: "client-1", TargetType: models.TargetNetZero}))

			got, err := s.GetTarget(ctx, "client-1", models.TargetNearTerm)
			require.NoError(t, err)
			assert.Equal(t, 2030, got.TargetYear)
			require.Len(t, got.Trajectory, 1)

			list, err := s.ListTargets(ctx, "client-1")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, models.TargetNearTerm, list[0].TargetType)

			_, err = s.GetTarget(ctx, "client-2", models.TargetNearTerm)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestOpen(t *testing.T) {
	s, err := Open("MEMORY", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open("mongo", "")
	assert.Error(t, err)
}

func ids(records []*models.ActivityRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
