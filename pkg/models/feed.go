package models

import (
	"time"
)

// ContentKind identifies the type of a feed item.
type ContentKind string

const (
	KindImage   ContentKind = "image"
	KindVideo   ContentKind = "video"
	KindProduct ContentKind = "product"
)

// Creator represents a creator agent from the directory service.
// The feed treats it as read-only for the duration of one aggregation pass.
type Creator struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	StudioName  string `json:"studio_name"`
	Style       string `json:"style"`
}

// CreatorSnapshot is the denormalized subset of Creator fields carried on
// every feed item, taken at fetch time. It does not track later creator
// changes; feed pages are ephemeral so the staleness is acceptable.
type CreatorSnapshot struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	StudioName  string `json:"studio_name"`
}

// Snapshot builds the display snapshot for a creator.
func (c Creator) Snapshot() CreatorSnapshot {
	return CreatorSnapshot{
		ID:          c.ID,
		DisplayName: c.DisplayName,
		AvatarURL:   c.AvatarURL,
		StudioName:  c.StudioName,
	}
}

// ContentItem represents a single piece of creator content in the feed.
type ContentItem struct {
	ID        string          `json:"id"`
	Kind      ContentKind     `json:"kind"`
	Title     string          `json:"title"`
	MediaURL  string          `json:"media_url"`
	CreatedAt time.Time       `json:"created_at"`
	CreatorID string          `json:"creator_id"`
	Creator   CreatorSnapshot `json:"creator"`
	LikeCount int64           `json:"like_count"`
	Price     *float64        `json:"price,omitempty"`
	Liked     bool            `json:"liked"`
	Synthetic bool            `json:"synthetic,omitempty"`
}

// FetchFailure records a single creator whose content fetch failed during
// a fan-out batch. Failures are data, not errors: one creator failing never
// fails the batch.
type FetchFailure struct {
	CreatorID string `json:"creator_id"`
	Reason    string `json:"reason"`
}

// FeedSnapshot is the caller-visible view of a feed session. Items carry
// the like overlay applied at read time.
type FeedSnapshot struct {
	SessionID string         `json:"session_id"`
	Items     []ContentItem  `json:"items"`
	Cursor    int            `json:"cursor"`
	HasMore   bool           `json:"has_more"`
	Loading   bool           `json:"loading"`
	Degraded  bool           `json:"degraded"`
	Failures  []FetchFailure `json:"failures,omitempty"`
}

// CreateSessionResponse is returned when a new feed session is opened.
type CreateSessionResponse struct {
	SessionID string       `json:"session_id"`
	Snapshot  FeedSnapshot `json:"snapshot"`
}

// ToggleLikeResponse reports the like state of an item after a toggle.
type ToggleLikeResponse struct {
	ItemID    string `json:"item_id"`
	Liked     bool   `json:"liked"`
	LikeCount int64  `json:"like_count"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}
