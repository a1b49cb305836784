package pagination

import "gorm.io/gorm"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination binds page-based query parameters on list endpoints.
type Pagination struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// Normalize clamps page and page size into their valid ranges.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// Limit returns the normalized page size.
func (p Pagination) Limit() int {
	return p.Normalize().PageSize
}

// Scope applies the pagination window to a gorm query.
func (p Pagination) Scope() func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Offset(p.Offset()).Limit(p.Limit())
	}
}

// Page describes one page of results plus the total match count.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Pagination `json:"-"`
	TotalCount int64 `json:"total_count"`
	PageNumber int   `json:"page"`
	Size       int   `json:"page_size"`
}

// NewPage assembles a response page from a normalized request.
func NewPage[T any](items []T, total int64, p Pagination) Page[T] {
	n := p.Normalize()
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		TotalCount: total,
		PageNumber: n.Page,
		Size:       n.PageSize,
	}
}
