package feed

import "github.com/memedici/artfeed/pkg/models"

// NextPage slices the next fixed-size window out of the sorted working set.
// The cursor is clamped: if the upstream set shrank between calls the
// result is an empty page with hasMore=false rather than an error, so
// pagination degrades to "end of feed".
func NextPage(sorted []models.ContentItem, cursor, pageSize int) (page []models.ContentItem, newCursor int, hasMore bool) {
	if cursor < 0 {
		cursor = 0
	}
	if pageSize <= 0 || cursor >= len(sorted) {
		return nil, min(cursor, len(sorted)), false
	}

	end := min(cursor+pageSize, len(sorted))
	return sorted[cursor:end], end, end < len(sorted)
}
