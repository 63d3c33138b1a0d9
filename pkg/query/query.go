// Package query holds the draft and committed copies of a list query.
// Editing the draft never fetches; committing or changing page does, exactly
// once per change.
package query

import "strings"

// Filter sentinels meaning "no filter".
const (
	AllGenres    = "All Genres"
	AllPlatforms = "All Platforms"
)

// Query is a catalog search.
type Query struct {
	Search   string
	Genre    string
	Platform string
	Page     int
	PageSize int
}

// Normalized trims the search text and maps the "All" sentinels to empty.
func (q Query) Normalized() Query {
	q.Search = strings.TrimSpace(q.Search)
	if q.Genre == AllGenres {
		q.Genre = ""
	}
	if q.Platform == AllPlatforms {
		q.Platform = ""
	}
	return q
}
