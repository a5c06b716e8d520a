package pagination

// Page is a page/limit request applied to listing queries.
type Page struct {
	Page  int `form:"page,default=1" validate:"gte=1"`
	Limit int `form:"limit,default=10" validate:"gte=1,lte=250"`
}

// Normalize clamps out-of-range values to defaults.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 10
	}
	if p.Limit > 250 {
		p.Limit = 250
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Info describes the page that was returned.
type Info struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int64 `json:"total_pages"`
	TotalItems   int64 `json:"total_items"`
	ItemsPerPage int   `json:"items_per_page"`
	HasNext      bool  `json:"has_next"`
	HasPrevious  bool  `json:"has_previous"`
}

func BuildInfo(page Page, totalItems int64) Info {
	totalPages := (totalItems + int64(page.Limit) - 1) / int64(page.Limit)
	return Info{
		CurrentPage:  page.Page,
		TotalPages:   totalPages,
		TotalItems:   totalItems,
		ItemsPerPage: page.Limit,
		HasNext:      int64(page.Page) < totalPages,
		HasPrevious:  page.Page > 1,
	}
}
