package shared

// ListFilters carries the common listing options for masterdata queries.
type ListFilters struct {
	CompanyID int64
	Search    string
	IsActive  *bool
	Page      int
	Limit     int
	SortBy    string
	SortDir   string
}

// Offset derives the query offset from page and limit.
func (f ListFilters) Offset() int {
	offset := (f.Page - 1) * f.Limit
	if offset < 0 {
		return 0
	}
	return offset
}
