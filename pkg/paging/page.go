// Package paging fetches paginated resources with last-initiated-wins
// ordering and computes the page-number window shown next to a list.
package paging

// Page is one page of a server-side list.
type Page[T any] struct {
	Items       []T
	CurrentPage int
	TotalPages  int
	TotalCount  int
	PageSize    int
}

// Empty reports a loaded page with no items.
func (p Page[T]) Empty() bool {
	return len(p.Items) == 0
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool {
	return p.CurrentPage > 1
}

// HasNext reports whether a next page exists.
func (p Page[T]) HasNext() bool {
	return p.CurrentPage < p.TotalPages
}

// TotalPages returns serverTotal when the server reported one, else
// ceil(totalCount / pageSize).
func TotalPages(serverTotal, totalCount, pageSize int) int {
	if serverTotal > 0 {
		return serverTotal
	}
	if pageSize <= 0 || totalCount <= 0 {
		return 0
	}
	return (totalCount + pageSize - 1) / pageSize
}

// normalize fills TotalPages from the count when the server left it out.
func (p Page[T]) normalize() Page[T] {
	p.TotalPages = TotalPages(p.TotalPages, p.TotalCount, p.PageSize)
	return p
}
