// Package feed implements the aggregation engine behind the unified
// creator feed: concurrent per-creator content fetches, merge and ordering,
// window pagination, synthetic fallback content, and per-session like state.
package feed

import (
	"sort"

	"github.com/memedici/artfeed/pkg/models"
)

// Merge combines existing and incoming items into one ordered working set.
// Duplicate IDs keep the existing copy, so re-merging the same batch is a
// no-op. The result is ordered newest first; items without a timestamp sort
// last, and equal timestamps break ties by ascending ID so the order is
// reproducible for identical inputs.
//
// Merge is pure: it never mutates its arguments.
func Merge(existing, incoming []models.ContentItem) []models.ContentItem {
	merged := make([]models.ContentItem, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))

	for _, item := range existing {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		merged = append(merged, item)
	}
	for _, item := range incoming {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		merged = append(merged, item)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		switch {
		case a.CreatedAt.IsZero() && b.CreatedAt.IsZero():
			return a.ID < b.ID
		case a.CreatedAt.IsZero():
			return false
		case b.CreatedAt.IsZero():
			return true
		case a.CreatedAt.Equal(b.CreatedAt):
			return a.ID < b.ID
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})

	return merged
}
