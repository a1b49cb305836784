package pagination

import "testing"

func TestNormalizeDefaults(t *testing.T) {
	p := Pagination{}.Normalize()
	if p.Page != 1 {
		t.Fatalf("expected page 1, got %d", p.Page)
	}
	if p.PageSize != defaultPageSize {
		t.Fatalf("expected default page size, got %d", p.PageSize)
	}
}

func TestNormalizeClampsPageSize(t *testing.T) {
	p := Pagination{Page: 2, PageSize: 10_000}.Normalize()
	if p.PageSize != maxPageSize {
		t.Fatalf("expected clamp to %d, got %d", maxPageSize, p.PageSize)
	}
}

func TestOffset(t *testing.T) {
	p := Pagination{Page: 3, PageSize: 5}
	if got := p.Offset(); got != 10 {
		t.Fatalf("expected offset 10, got %d", got)
	}
}

func TestNewPageNeverNilItems(t *testing.T) {
	page := NewPage[int](nil, 0, Pagination{})
	if page.Items == nil {
		t.Fatalf("expected empty slice, got nil")
	}
	if page.PageNumber != 1 {
		t.Fatalf("expected page 1, got %d", page.PageNumber)
	}
}
