package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonledger/internal/emission"
	"github.com/rshade/carbonledger/internal/models"
)

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr error
	}{
		{name: "defaults", params: NewParams()},
		{name: "page mode", params: Params{Page: 2, PageSize: 10}},
		{name: "negative offset", params: Params{Limit: 10, Offset: -1}, wantErr: ErrInvalidOffset},
		{name: "mixed modes", params: Params{Page: 1, PageSize: 10, Offset: 5}, wantErr: ErrMixedPaginationModes},
		{name: "page size alone", params: Params{Limit: 10, PageSize: 5}, wantErr: ErrPageSizeWithoutPage},
		{name: "page size too large", params: Params{Page: 1, PageSize: MaxPageSize + 1}, wantErr: ErrInvalidPageSize},
		{name: "limit zero", params: Params{}, wantErr: ErrInvalidLimit},
		{name: "bad order", params: Params{Limit: 1, SortOrder: "up"}, wantErr: ErrInvalidSortOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		in        string
		wantField string
		wantOrder string
		wantErr   error
	}{
		{in: "", wantField: "", wantOrder: "asc"},
		{in: "co2e", wantField: "co2e", wantOrder: "asc"},
		{in: "co2e:DESC", wantField: "co2e", wantOrder: "desc"},
		{in: ":desc", wantErr: ErrEmptySortField},
		{in: "a:b:c", wantErr: ErrInvalidSortFormat},
		{in: "co2e:sideways", wantErr: ErrInvalidSortOrder},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			field, order, err := ParseSort(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantField, field)
			assert.Equal(t, tt.wantOrder, order)
		})
	}
}

func TestApplyAndMeta(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6}

	p := Params{Limit: 3, Offset: 5}
	assert.Equal(t, []int{5, 6}, Apply(items, p))
	m := NewMeta(p, len(items))
	assert.Equal(t, 2, m.Returned)
	assert.False(t, m.HasNext)

	p = Params{Page: 2, PageSize: 3}
	assert.Equal(t, []int{3, 4, 5}, Apply(items, p))
	m = NewMeta(p, len(items))
	assert.Equal(t, 3, m.TotalPages)
	assert.True(t, m.HasNext)

	assert.Empty(t, Apply(items, Params{Limit: 3, Offset: 50}))
}

func record(id, node string, day int, co2e float64) *models.ActivityRecord {
	return &models.ActivityRecord{
		ID:        id,
		NodeID:    node,
		Timestamp: time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC),
		CalculatedEmissions: emission.Emissions{
			Incoming: emission.Bucket{"x": {CO2e: co2e}},
		},
	}
}

func TestSortActivities(t *testing.T) {
	records := []*models.ActivityRecord{
		record("a", "n2", 1, 30),
		record("b", "n1", 2, 10),
		record("c", "n3", 3, 20),
	}

	ids := func(rs []*models.ActivityRecord) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.ID
		}
		return out
	}

	got, err := SortActivities(records, "co2e", SortOrderDesc)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, ids(got))

	got, err = SortActivities(records, "node", SortOrderAsc)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, ids(got))

	got, err = SortActivities(records, "", SortOrderAsc)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))

	_, err = SortActivities(records, "cost", SortOrderAsc)
	require.ErrorIs(t, err, ErrInvalidSortField)
	assert.Contains(t, ActivityFields(), "timestamp")
}
