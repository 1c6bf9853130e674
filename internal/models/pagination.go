package models

// Pagination list-response pagination block, aligned with the web app's
// expected shape
type Pagination struct {
	Count   int `json:"count"`
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
}

// NewPagination computes the pagination block for a page slice
func NewPagination(count, page, perPage int) *Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	pages := count / perPage
	if count%perPage != 0 || pages == 0 {
		pages++
	}
	return &Pagination{
		Count:   count,
		Page:    page,
		Pages:   pages,
		PerPage: perPage,
	}
}

// Bounds returns the [start, end) index range of the page within a list
// of count items
func (p *Pagination) Bounds() (int, int) {
	start := (p.Page - 1) * p.PerPage
	if start > p.Count {
		start = p.Count
	}
	end := start + p.PerPage
	if end > p.Count {
		end = p.Count
	}
	return start, end
}
