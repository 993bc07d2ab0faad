package pagination

const (
	DefaultPageSize = 20
	MaxPageSize     = 250
)

type Pagination struct {
	Page     int `form:"page,default=1" binding:"gte=1"`
	PageSize int `form:"page_size,default=20" binding:"gte=1,lte=250"`
}

type PageInfo struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	HasMore  bool  `json:"has_more"`
}

// Normalize clamps page and page size into the supported range.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the row offset of the current page.
func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// BuildPageInfo reports paging metadata for a total row count.
func BuildPageInfo(p Pagination, total int64) PageInfo {
	n := p.Normalize()
	return PageInfo{
		Page:     n.Page,
		PageSize: n.PageSize,
		Total:    total,
		HasMore:  int64(n.Page*n.PageSize) < total,
	}
}
