package pagination

import (
	"errors"
	"fmt"
	"strings"
)

// Defaults and bounds.
const (
	DefaultLimit     = 100
	MaxLimit         = 10000
	MaxPageSize      = 1000
	DefaultSortOrder = SortOrderAsc
	SortOrderAsc     = "asc"
	SortOrderDesc    = "desc"

	sortPartsMax = 2
)

// Flag validation errors.
var (
	ErrInvalidLimit         = fmt.Errorf("limit must be between 1 and %d", MaxLimit)
	ErrInvalidPageSize      = fmt.Errorf("page-size must be between 1 and %d", MaxPageSize)
	ErrInvalidOffset        = errors.New("offset must be non-negative")
	ErrInvalidSortOrder     = errors.New("sort order must be 'asc' or 'desc'")
	ErrMixedPaginationModes = errors.New("cannot use both --offset and --page")
	ErrPageSizeWithoutPage  = errors.New("--page-size requires --page to be set")
	ErrInvalidSortFormat    = errors.New("invalid sort format: use 'field' or 'field:order' (e.g., 'co2e:desc')")
	ErrEmptySortField       = errors.New("sort field cannot be empty")
	ErrInvalidSortField     = errors.New("invalid sort field")
)

// Params holds parsed pagination flags. Page 0 selects offset mode.
type Params struct {
	Limit     int
	Offset    int
	Page      int
	PageSize  int
	SortField string
	SortOrder string
}

// NewParams returns offset-mode defaults.
func NewParams() Params {
	return Params{Limit: DefaultLimit, SortOrder: DefaultSortOrder}
}

// Validate checks bounds and that offset and page modes are not mixed.
func (p Params) Validate() error {
	switch {
	case p.Offset < 0:
		return ErrInvalidOffset
	case p.Page > 0 && p.Offset > 0:
		return ErrMixedPaginationModes
	case p.Page == 0 && p.PageSize > 0:
		return ErrPageSizeWithoutPage
	case p.Page > 0 && (p.PageSize < 1 || p.PageSize > MaxPageSize):
		return ErrInvalidPageSize
	case p.Page == 0 && (p.Limit < 1 || p.Limit > MaxLimit):
		return ErrInvalidLimit
	}
	if p.SortOrder != "" && p.SortOrder != SortOrderAsc && p.SortOrder != SortOrderDesc {
		return ErrInvalidSortOrder
	}
	return nil
}

// ParseSort splits "field" or "field:order". An empty string means no
// sorting.
func ParseSort(sortStr string) (string, string, error) {
	if strings.TrimSpace(sortStr) == "" {
		return "", DefaultSortOrder, nil
	}

	parts := strings.Split(sortStr, ":")
	if len(parts) > sortPartsMax {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSortFormat, sortStr)
	}
	field := strings.TrimSpace(parts[0])
	order := DefaultSortOrder
	if len(parts) == sortPartsMax {
		order = strings.ToLower(strings.TrimSpace(parts[1]))
	}

	if field == "" {
		return "", "", ErrEmptySortField
	}
	if order != SortOrderAsc && order != SortOrderDesc {
		return "", "", fmt.Errorf("%w: got %q", ErrInvalidSortOrder, order)
	}
	return field, order, nil
}

// IsPageBased reports whether --page was given.
func (p Params) IsPageBased() bool { return p.Page > 0 }

// EffectiveLimit returns the number of items to show.
func (p Params) EffectiveLimit() int {
	if p.IsPageBased() {
		return p.PageSize
	}
	return p.Limit
}

// EffectiveOffset returns the number of items to skip.
func (p Params) EffectiveOffset() int {
	if p.IsPageBased() {
		return (p.Page - 1) * p.PageSize
	}
	return p.Offset
}

// Apply returns the window of items selected by p.
func Apply[T any](items []T, p Params) []T {
	offset := min(p.EffectiveOffset(), len(items))
	end := len(items)
	if limit := p.EffectiveLimit(); limit > 0 {
		end = min(offset+limit, len(items))
	}
	return items[offset:end]
}
