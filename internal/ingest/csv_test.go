package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonledger/internal/emission"
)

func TestReadCSV(t *testing.T) {
	input := "\ufeffnodeId,scope,date,time,kwh (MWh),note\n" +
		"plant-1,grid,01/03/2025,09:00,1.5,meter A\n" +
		"plant-1,grid,2025-03-02,,2,\n" +
		"plant-2,grid,03/03/2025\n" +
		"plant-2,grid,04/03/2025,10:00,\"3,x\n"

	rows, rowErrs, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, "plant-1", first.NodeID)
	assert.Equal(t, "grid", first.ScopeIdentifier)
	assert.Equal(t, "01/03/2025", first.Date)
	assert.Equal(t, "09:00", first.Time)
	assert.Equal(t, map[string]any{"kwh": "1.5", "note": "meter A"}, first.Payload.Values)
	assert.Equal(t, map[string]string{"kwh": "MWh"}, first.Payload.Units)

	second := rows[1]
	assert.Equal(t, 3, second.Line)
	assert.Empty(t, second.Time)
	assert.NotContains(t, second.Payload.Values, "note", "empty cells are skipped")

	require.Len(t, rowErrs, 2)
	assert.Equal(t, 4, rowErrs[0].Line)
	assert.Contains(t, rowErrs[0].Err, "expected 6 fields, got 3")
	assert.Equal(t, 5, rowErrs[1].Line)
}

func TestReadCSV_EmptyInput(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadCSV_NormalizesPayload(t *testing.T) {
	input := "nodeId,scopeIdentifier,date,time,wasteMass (t),recyclingRate\n" +
		"node-1,waste,15/03/2024,09:00,1.5,40\n"

	rows, rowErrs, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Empty(t, rowErrs)
	require.Len(t, rows, 1)
	assert.Equal(t, "t", rows[0].Payload.Units["wasteMass"])

	res := NewNormalizer().Normalize(cfgFor(emission.Scope3, "Waste Generated in Operations", ""), rows[0].Payload)
	assert.InDelta(t, 1500, res.Values["wasteMass"], 1e-9)
	assert.InDelta(t, 0.4, res.Values["recyclingRate"], 1e-12)
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		in       string
		name     string
		reserved string
		unit     string
	}{
		{in: "NodeID", name: "NodeID", reserved: colNode},
		{in: "scope_identifier", name: "scope_identifier", reserved: colScope},
		{in: "Input Type", name: "Input Type", reserved: colInputType},
		{in: "wasteMass (t)", name: "wasteMass", unit: "t"},
		{in: " distance ", name: "distance"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c := parseHeader(tt.in)
			assert.Equal(t, tt.name, c.name)
			assert.Equal(t, tt.reserved, c.reserved)
			assert.Equal(t, tt.unit, c.unit)
		})
	}
}
