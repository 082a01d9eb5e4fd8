package feed

import (
	"context"
	"sync"
	"time"

	"github.com/memedici/artfeed/pkg/logging"
	"github.com/memedici/artfeed/pkg/models"
	"github.com/memedici/artfeed/pkg/monitoring"
)

// Batcher is the slice of Aggregator a session needs. Defined here so
// tests can drive sessions without real upstreams.
type Batcher interface {
	FetchBatch(ctx context.Context) ([]models.ContentItem, []models.FetchFailure, error)
}

// SessionConfig tunes one feed session.
type SessionConfig struct {
	PageSize int

	// SyntheticCeiling caps how many fallback items one session will ever
	// hold. Past the ceiling a degraded session simply reports no more
	// content instead of manufacturing an endless feed.
	SyntheticCeiling int

	Logger  logging.Logger
	Metrics *monitoring.FeedMetrics

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.PageSize <= 0 {
		c.PageSize = 20
	}
	if c.SyntheticCeiling <= 0 {
		c.SyntheticCeiling = DefaultSyntheticCeiling
	}
	if c.Logger == nil {
		c.Logger = logging.NewLogger()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Session is one client's stateful view of the feed: the merged item pool,
// the pagination cursor over it, the like overlay, and the in-flight guard
// that keeps concurrent load requests from stacking fetches.
type Session struct {
	id      string
	batcher Batcher
	gen     *Generator
	likes   *LikeRegistry
	cfg     SessionConfig
	logger  logging.Logger

	mu             sync.Mutex
	items          []models.ContentItem
	cursor         int
	hasMore        bool
	loading        bool
	degraded       bool
	failures       []models.FetchFailure
	syntheticCount int

	// epoch increments on Reset so a fetch started before the reset is
	// recognized as stale and discarded when it lands.
	epoch uint64

	lastAccess time.Time
}

// NewSession creates an empty session. HasMore starts true: an untouched
// feed always invites a first load.
func NewSession(id string, batcher Batcher, cfg SessionConfig) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		id:         id,
		batcher:    batcher,
		gen:        NewGenerator(cfg.Now),
		likes:      NewLikeRegistry(),
		cfg:        cfg,
		logger:     cfg.Logger,
		hasMore:    true,
		lastAccess: cfg.Now(),
	}
}

// ID returns the session handle.
func (s *Session) ID() string { return s.id }

// Touch records activity for idle expiry.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastAccess = s.cfg.Now()
	s.mu.Unlock()
}

// LastAccess returns the time of the most recent client interaction.
func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// LoadMore advances the feed by one page, fetching a fresh batch from the
// upstreams and merging it into the pool. While a fetch is in flight any
// further LoadMore returns the current snapshot with Loading set rather
// than stacking a second fetch. When the pool is exhausted and upstreams
// yield nothing real, the session degrades to synthetic content up to the
// ceiling instead of surfacing an error.
func (s *Session) LoadMore(ctx context.Context) models.FeedSnapshot {
	s.mu.Lock()
	s.lastAccess = s.cfg.Now()
	if s.loading || !s.hasMore {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	s.loading = true
	epoch := s.epoch
	s.mu.Unlock()

	items, failures, err := s.batcher.FetchBatch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if epoch != s.epoch {
		// Session was reset mid-fetch; the batch belongs to a feed that
		// no longer exists.
		s.logger.WithFields(logging.Fields{"session_id": s.id}).Debug("Discarding stale aggregation batch after reset")
		return s.snapshotLocked()
	}

	s.failures = failures
	switch {
	case err != nil:
		s.logger.WithFields(logging.Fields{"session_id": s.id, "error": err.Error()}).Warn("Aggregation failed, serving synthetic content")
		s.degraded = true
		items = s.synthesizeLocked()
	case len(items) == 0 && len(failures) > 0:
		s.logger.WithFields(logging.Fields{"session_id": s.id}).Warn("All sampled creators failed, serving synthetic content")
		s.degraded = true
		items = s.synthesizeLocked()
	default:
		s.degraded = false
	}

	s.items = Merge(s.items, items)
	_, s.cursor, s.hasMore = NextPage(s.items, s.cursor, s.cfg.PageSize)
	if s.degraded && s.syntheticCount < s.cfg.SyntheticCeiling {
		// A degraded feed keeps inviting loads until the synthetic
		// ceiling, even though each fallback batch is consumed whole.
		s.hasMore = true
	}

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.PagesServed.Inc()
	}
	return s.snapshotLocked()
}

// synthesizeLocked manufactures up to one page of fallback items, bounded
// by the session ceiling. Callers hold s.mu.
func (s *Session) synthesizeLocked() []models.ContentItem {
	remaining := s.cfg.SyntheticCeiling - s.syntheticCount
	if remaining <= 0 {
		return nil
	}
	n := min(s.cfg.PageSize, remaining)
	items := s.gen.Synthesize(len(s.items), n)
	s.syntheticCount += len(items)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.FallbackItems.Add(float64(len(items)))
	}
	return items
}

// Reset discards the item pool, cursor, and like overlay so the next
// LoadMore starts a fresh feed. Any fetch in flight at reset time is
// discarded on arrival.
func (s *Session) Reset() models.FeedSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = s.cfg.Now()
	s.epoch++
	s.likes = NewLikeRegistry()
	s.items = nil
	s.cursor = 0
	s.hasMore = true
	s.degraded = false
	s.failures = nil
	s.syntheticCount = 0
	return s.snapshotLocked()
}

// ToggleLike flips the like state of a loaded item. The second return is
// false when the item is not part of this session's feed.
func (s *Session) ToggleLike(itemID string) (models.ToggleLikeResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = s.cfg.Now()

	var base *models.ContentItem
	for i := range s.items {
		if s.items[i].ID == itemID {
			base = &s.items[i]
			break
		}
	}
	if base == nil {
		return models.ToggleLikeResponse{}, false
	}

	liked := s.likes.Toggle(itemID)
	count := base.LikeCount
	if liked {
		count++
	}
	return models.ToggleLikeResponse{ItemID: itemID, Liked: liked, LikeCount: count}, true
}

// Snapshot returns the current caller-visible view without side effects
// beyond the access timestamp.
func (s *Session) Snapshot() models.FeedSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = s.cfg.Now()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() models.FeedSnapshot {
	visible := s.likes.Apply(s.items[:s.cursor])
	return models.FeedSnapshot{
		SessionID: s.id,
		Items:     visible,
		Cursor:    s.cursor,
		HasMore:   s.hasMore,
		Loading:   s.loading,
		Degraded:  s.degraded,
		Failures:  s.failures,
	}
}
