package pagination

const (
	DefaultTake = 10
	MaxTake     = 100
)

// Page is offset pagination as used by record and coupon listings.
type Page struct {
	Take int `form:"take"`
	Skip int `form:"skip"`
}

// Normalize clamps take into [1, MaxTake] and skip to non-negative.
func (p Page) Normalize() Page {
	if p.Take <= 0 {
		p.Take = DefaultTake
	}
	if p.Take > MaxTake {
		p.Take = MaxTake
	}
	if p.Skip < 0 {
		p.Skip = 0
	}
	return p
}

// Next returns the page after p.
func (p Page) Next() Page {
	n := p.Normalize()
	n.Skip += n.Take
	return n
}

type PageInfo struct {
	Take    int  `json:"take"`
	Skip    int  `json:"skip"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}

func BuildPageInfo(p Page, total int) PageInfo {
	p = p.Normalize()
	return PageInfo{
		Take:    p.Take,
		Skip:    p.Skip,
		Total:   total,
		HasMore: p.Skip+p.Take < total,
	}
}
