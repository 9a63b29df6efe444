package domain

// PaginationInfo describes one page of an offset/limit listing.
type PaginationInfo struct {
	CurrentPage   int  `json:"currentPage"`
	TotalPages    int  `json:"totalPages"`
	TotalArticles int  `json:"totalArticles"`
	HasNext       bool `json:"hasNext"`
	HasPrev       bool `json:"hasPrev"`
	Limit         int  `json:"limit"`
}

// NewPagination derives the page counters from a total. limit must be > 0.
func NewPagination(page, limit, total int) PaginationInfo {
	return PaginationInfo{
		CurrentPage:   page,
		TotalPages:    (total + limit - 1) / limit,
		TotalArticles: total,
		HasNext:       page*limit < total,
		HasPrev:       page > 1,
		Limit:         limit,
	}
}

// SinglePage is the synthetic pagination used when no count is available.
func SinglePage(n, limit int) PaginationInfo {
	return PaginationInfo{CurrentPage: 1, TotalPages: 1, TotalArticles: n, Limit: limit}
}

// EmptyPage is the pagination of a response that carries nothing.
func EmptyPage(limit int) PaginationInfo {
	return PaginationInfo{CurrentPage: 1, Limit: limit}
}
