package marketv1

// Pager is a paginated request helper.
type Pager struct {
	Offset int64
	Limit  int64
}

// NewPager creates a new Pager, clamping the limit to at least one row.
func NewPager(offset, limit int64) Pager {
	if limit < 1 {
		limit = 1
	}
	if offset < 0 {
		offset = 0
	}
	return Pager{Offset: offset, Limit: limit}
}
