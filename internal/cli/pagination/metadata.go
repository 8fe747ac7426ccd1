package pagination

// Meta describes the window returned by a listing command.
type Meta struct {
	TotalItems int  `json:"totalItems"`
	Offset     int  `json:"offset"`
	Returned   int  `json:"returned"`
	Page       int  `json:"page,omitempty"`
	TotalPages int  `json:"totalPages,omitempty"`
	HasNext    bool `json:"hasNext"`
}

// NewMeta describes the window p selects out of total items.
func NewMeta(p Params, total int) Meta {
	offset := min(p.EffectiveOffset(), total)
	returned := total - offset
	if limit := p.EffectiveLimit(); limit > 0 {
		returned = min(returned, limit)
	}
	m := Meta{
		TotalItems: total,
		Offset:     offset,
		Returned:   returned,
		HasNext:    offset+returned < total,
	}
	if p.IsPageBased() {
		m.Page = p.Page
		m.TotalPages = (total + p.PageSize - 1) / p.PageSize
	}
	return m
}
