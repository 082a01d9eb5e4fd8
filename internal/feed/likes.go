package feed

import (
	"sync"

	"github.com/memedici/artfeed/pkg/models"
)

// LikeRegistry tracks per-session like toggles as an overlay. Canonical
// items are never mutated; the registry is applied at read time so a
// re-fetch of the same item cannot clobber a local like.
type LikeRegistry struct {
	mu    sync.RWMutex
	liked map[string]struct{}
}

func NewLikeRegistry() *LikeRegistry {
	return &LikeRegistry{liked: make(map[string]struct{})}
}

// Toggle flips the like state for an item and returns the new state.
// Unknown item IDs are accepted; the registry has no item universe of its
// own.
func (r *LikeRegistry) Toggle(itemID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.liked[itemID]; ok {
		delete(r.liked, itemID)
		return false
	}
	r.liked[itemID] = struct{}{}
	return true
}

// IsLiked reports whether an item is currently liked.
func (r *LikeRegistry) IsLiked(itemID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.liked[itemID]
	return ok
}

// Apply returns a copy of items with the like overlay folded in: liked
// items carry Liked=true and a count bumped by one. The input slice is
// left untouched.
func (r *LikeRegistry) Apply(items []models.ContentItem) []models.ContentItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ContentItem, len(items))
	copy(out, items)
	for i := range out {
		if _, ok := r.liked[out[i].ID]; ok {
			out[i].Liked = true
			out[i].LikeCount++
		}
	}
	return out
}
