package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonledger/internal/emission"
	"github.com/rshade/carbonledger/internal/engine"
	"github.com/rshade/carbonledger/internal/engine/batch"
	"github.com/rshade/carbonledger/internal/models"
)

func TestPeriodFlags_Period(t *testing.T) {
	now := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		flags   periodFlags
		want    models.Period
		wantErr bool
	}{
		{
			name:  "monthly defaults to now",
			flags: periodFlags{kind: "monthly"},
			want:  models.Period{Type: models.PeriodMonthly, Year: 2025, Month: 3},
		},
		{
			name:  "explicit year",
			flags: periodFlags{kind: "yearly", year: 2024},
			want:  models.Period{Type: models.PeriodYearly, Year: 2024},
		},
		{
			name:  "weekly uses ISO week",
			flags: periodFlags{kind: "weekly"},
			want:  models.Period{Type: models.PeriodWeekly, Year: 2025, Week: 11},
		},
		{
			name:  "date selects containing period",
			flags: periodFlags{kind: "daily", date: "2024-12-31", year: 1999},
			want:  models.Period{Type: models.PeriodDaily, Year: 2024, Month: 12, Day: 31},
		},
		{
			name:  "all time",
			flags: periodFlags{kind: "all-time"},
			want:  models.Period{Type: models.PeriodAllTime},
		},
		{name: "unknown type", flags: periodFlags{kind: "hourly"}, wantErr: true},
		{name: "bad date", flags: periodFlags{kind: "daily", date: "12/03/2025"}, wantErr: true},
		{name: "month out of range", flags: periodFlags{kind: "monthly", month: 13}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.period(now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateRange_Bounds(t *testing.T) {
	d := dateRange{from: "2025-01-01", to: "2025-01-31"}
	from, to, err := d.bounds()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), to, "--to is inclusive")

	from, to, err = (&dateRange{}).bounds()
	require.NoError(t, err)
	assert.True(t, from.IsZero())
	assert.True(t, to.IsZero())

	_, _, err = (&dateRange{from: "2025-02-01", to: "2025-01-01"}).bounds()
	assert.Error(t, err)
	_, _, err = (&dateRange{from: "01/02/2025"}).bounds()
	assert.Error(t, err)

	// A single day is a valid range.
	_, _, err = (&dateRange{from: "2025-01-05", to: "2025-01-05"}).bounds()
	assert.NoError(t, err)
}

func TestActivityFlags_Payload(t *testing.T) {
	f := activityFlags{values: []string{"kwh=1200", " litres = 4.5 ", "note="}}
	got, err := f.payload()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"kwh": "1200", "litres": "4.5", "note": ""}, got)

	_, err = (&activityFlags{}).payload()
	assert.Error(t, err)
	_, err = (&activityFlags{values: []string{"kwh"}}).payload()
	assert.Error(t, err)
	_, err = (&activityFlags{values: []string{"=3"}}).payload()
	assert.Error(t, err)
}

func TestPartialStatusLine(t *testing.T) {
	assert.Equal(t, "OK: 3 of 3 records saved",
		partialStatusLine(&batch.Report{Total: 3, Saved: 3}, "records"))
	assert.Equal(t, "FAILED: 0 of 2 rows saved",
		partialStatusLine(&batch.Report{Total: 2, Failed: 2}, "rows"))
	assert.Equal(t, "PARTIAL: 4 of 5 rows saved, 1 failed",
		partialStatusLine(&batch.Report{Total: 5, Saved: 4, Failed: 1}, "rows"))
}

func TestBatchExit(t *testing.T) {
	assert.NoError(t, batchExit(4, 0))
	assert.Equal(t, ExitFailure, ExitCode(batchExit(0, 2)))
	assert.Equal(t, ExitPartial, ExitCode(batchExit(3, 1)))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", want: ExitOK},
		{name: "plain", err: errors.New("boom"), want: ExitFailure},
		{name: "flowchart missing", err: engine.ErrFlowchartNotFound, want: ExitConfiguration},
		{name: "factor missing", err: engine.ErrEmissionFactorMissing, want: ExitConfiguration},
		{name: "activity missing", err: engine.ErrActivityNotFound, want: ExitFailure},
		{name: "explicit", err: &ExitError{Code: ExitPartial, Reason: "x"}, want: ExitPartial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Empty(t, firstNonEmpty("", ""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Purch…", truncate("Purchased Electricity", 6))
}

func TestRankTotals(t *testing.T) {
	groups := map[string]models.Totals{"a": {CO2e: 1}, "b": {CO2e: 3}, "c": {CO2e: 3}, "d": {CO2e: 2}}
	got := rankTotals(groups, func(t models.Totals) float64 { return t.CO2e }, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"b", "c", "d"}, []string{got[0].Name, got[1].Name, got[2].Name})
}

func TestRenderSummary_Plain(t *testing.T) {
	s := models.NewEmissionSummary("acme", models.Period{Type: models.PeriodMonthly, Year: 2025, Month: 3})
	s.From = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	s.To = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	s.TotalEmissions = models.Totals{CO2e: 12.5}
	s.ByScope[string(emission.Scope1)] = models.Totals{CO2e: 10}
	s.ByScope[string(emission.Scope2)] = models.Totals{CO2e: 2.5}
	s.ByNode["plant-1"] = models.NodeTotals{Label: "Plant 1", Totals: models.Totals{CO2e: 12.5}}
	s.Metadata.DataEntriesIncluded = 4
	s.Metadata.Version = 2

	var buf bytes.Buffer
	require.NoError(t, RenderSummary(&buf, s, 2))
	out := buf.String()

	assert.Contains(t, out, "EMISSION SUMMARY")
	assert.Contains(t, out, "Client: acme")
	assert.Contains(t, out, "Period: monthly:2025-03 (2025-03-01 to 2025-04-01)")
	assert.Contains(t, out, "Total: 12.50 tCO2e")
	assert.Contains(t, out, "Scope 1: 10.00 (80.0%)")
	assert.Contains(t, out, "Scope 3: 0.00 (0.0%)")
	assert.Contains(t, out, "Node plant-1: 12.50")
	assert.Contains(t, out, "Records: 4, version 2")
	assert.NotContains(t, out, "Trend")
}

func TestRenderTrajectory_Plain(t *testing.T) {
	v := trajectoryView{
		Title:            "SBTI TRAJECTORY",
		ClientID:         "acme",
		Alignment:        "1.5C",
		TargetType:       models.TargetNearTerm,
		Method:           models.MethodAbsolute,
		BaseYear:         2024,
		TargetYear:       2026,
		BaseEmission:     100,
		MinimumReduction: 8.4,
		AnnualReduction:  4.2,
		Points: []models.TrajectoryPoint{
			{Year: 2025, TargetEmission: 95.8, CumulativeReductionPercent: 4.2},
			{Year: 2026, TargetEmission: 91.6, CumulativeReductionPercent: 8.4},
		},
		Checks: []models.CoverageCheck{
			{Name: "scope12Coverage", Passed: true, Value: 95, Required: 95},
			{Name: "scope3Coverage", Passed: false, Value: 50, Required: 67},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderTrajectory(&buf, v, 1))
	out := buf.String()

	assert.Contains(t, out, "SBTI TRAJECTORY")
	assert.Contains(t, out, "acme")
	assert.Contains(t, out, "Base 2024: 100.0 tCO2e")
	assert.Contains(t, out, "Reduction: 8.4% by 2026 (4.20%/yr)")
	assert.Contains(t, out, "2026: 91.6 (-8.4%)")
	assert.Contains(t, out, "PASS scope12Coverage: 95.0 (required 95.0)")
	assert.Contains(t, out, "FAIL scope3Coverage: 50.0 (required 67.0)")
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		status         StepStatus
		nonInteractive bool
		want           string
	}{
		{StepSuccess, false, "✓"},
		{StepWarning, false, "!"},
		{StepSkipped, false, "-"},
		{StepError, false, "✗"},
		{StepSuccess, true, "[OK]"},
		{StepWarning, true, "[WARN]"},
		{StepSkipped, true, "[SKIP]"},
		{StepError, true, "[ERR]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatStatus(tt.status, tt.nonInteractive))
	}
}
