package pagination

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/rshade/carbonledger/internal/models"
)

// activityKeys compares two records on one field.
//
//nolint:gochecknoglobals // Read-only lookup table.
var activityKeys = map[string]func(a, b *models.ActivityRecord) int{
	"timestamp": func(a, b *models.ActivityRecord) int { return a.Timestamp.Compare(b.Timestamp) },
	"co2e": func(a, b *models.ActivityRecord) int {
		x, y := a.CalculatedEmissions.Incoming.Total().CO2e, b.CalculatedEmissions.Incoming.Total().CO2e
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	},
	"node":   func(a, b *models.ActivityRecord) int { return strings.Compare(a.NodeID, b.NodeID) },
	"scope":  func(a, b *models.ActivityRecord) int { return strings.Compare(a.ScopeIdentifier, b.ScopeIdentifier) },
	"status": func(a, b *models.ActivityRecord) int { return strings.Compare(string(a.ProcessingStatus), string(b.ProcessingStatus)) },
}

// ActivityFields returns the sortable activity fields.
func ActivityFields() []string {
	fields := make([]string, 0, len(activityKeys))
	for f := range activityKeys {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// SortActivities returns a sorted copy of records. Ties keep stream order
// (timestamp, then ID). An empty field leaves the order unchanged.
func SortActivities(records []*models.ActivityRecord, field, order string) ([]*models.ActivityRecord, error) {
	out := slices.Clone(records)
	if field == "" {
		return out, nil
	}
	cmp, ok := activityKeys[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid: %s)", ErrInvalidSortField, field, strings.Join(ActivityFields(), ", "))
	}
	slices.SortStableFunc(out, func(a, b *models.ActivityRecord) int {
		if order == SortOrderDesc {
			return cmp(b, a)
		}
		return cmp(a, b)
	})
	return out, nil
}
