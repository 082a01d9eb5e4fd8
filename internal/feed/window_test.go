package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memedici/artfeed/pkg/models"
)

func sortedItems(n int) []models.ContentItem {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := make([]models.ContentItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, item(fmt.Sprintf("item-%03d", i), base.Add(-time.Duration(i)*time.Minute)))
	}
	return items
}

func TestNextPage(t *testing.T) {
	tests := []struct {
		name        string
		total       int
		cursor      int
		pageSize    int
		wantLen     int
		wantCursor  int
		wantHasMore bool
	}{
		{name: "first full page", total: 45, cursor: 0, pageSize: 20, wantLen: 20, wantCursor: 20, wantHasMore: true},
		{name: "middle page", total: 45, cursor: 20, pageSize: 20, wantLen: 20, wantCursor: 40, wantHasMore: true},
		{name: "short final page", total: 45, cursor: 40, pageSize: 20, wantLen: 5, wantCursor: 45, wantHasMore: false},
		{name: "exact fit final page", total: 40, cursor: 20, pageSize: 20, wantLen: 20, wantCursor: 40, wantHasMore: false},
		{name: "cursor at end", total: 40, cursor: 40, pageSize: 20, wantLen: 0, wantCursor: 40, wantHasMore: false},
		{name: "cursor past shrunken set", total: 10, cursor: 30, pageSize: 20, wantLen: 0, wantCursor: 10, wantHasMore: false},
		{name: "negative cursor clamps to start", total: 5, cursor: -3, pageSize: 20, wantLen: 5, wantCursor: 5, wantHasMore: false},
		{name: "empty set", total: 0, cursor: 0, pageSize: 20, wantLen: 0, wantCursor: 0, wantHasMore: false},
		{name: "zero page size", total: 10, cursor: 0, pageSize: 0, wantLen: 0, wantCursor: 0, wantHasMore: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, cursor, hasMore := NextPage(sortedItems(tt.total), tt.cursor, tt.pageSize)
			assert.Len(t, page, tt.wantLen)
			assert.Equal(t, tt.wantCursor, cursor)
			assert.Equal(t, tt.wantHasMore, hasMore)
		})
	}
}

func TestNextPageCoversEverythingExactlyOnce(t *testing.T) {
	items := sortedItems(73)

	var seen []string
	cursor := 0
	for {
		page, next, hasMore := NextPage(items, cursor, 20)
		for _, it := range page {
			seen = append(seen, it.ID)
		}
		cursor = next
		if !hasMore {
			break
		}
	}

	require.Len(t, seen, len(items))
	for i, it := range items {
		assert.Equal(t, it.ID, seen[i])
	}
}
