package feed

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/memedici/artfeed/pkg/cache"
	"github.com/memedici/artfeed/pkg/logging"
	"github.com/memedici/artfeed/pkg/models"
	"github.com/memedici/artfeed/pkg/monitoring"
)

// DirectoryAPI is the boundary to the creator directory service.
type DirectoryAPI interface {
	ListCreators(ctx context.Context) ([]models.Creator, error)
}

// ContentAPI is the boundary to the per-creator content service.
type ContentAPI interface {
	ListRecent(ctx context.Context, creatorID string, limit, offset int) ([]models.ContentItem, error)
}

// AggregatorConfig tunes one aggregation batch.
type AggregatorConfig struct {
	// SampleSize caps how many creators are consulted per batch. The
	// directory is unbounded, so this is the fan-out backpressure control,
	// not an optimization.
	SampleSize int

	// PerCreatorLimit is how many recent items each creator contributes.
	PerCreatorLimit int

	// FetchTimeout is the hard per-creator request deadline.
	FetchTimeout time.Duration

	// MaxConcurrent caps in-flight creator fetches. Zero means SampleSize.
	MaxConcurrent int

	// DirectoryTTL controls how long one directory listing is shared
	// across batches and sessions.
	DirectoryTTL time.Duration

	Logger  logging.Logger
	Metrics *monitoring.FeedMetrics
}

func (c AggregatorConfig) withDefaults() AggregatorConfig {
	if c.SampleSize <= 0 {
		c.SampleSize = 8
	}
	if c.PerCreatorLimit <= 0 {
		c.PerCreatorLimit = 5
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 5 * time.Second
	}
	if c.MaxConcurrent <= 0 || c.MaxConcurrent > c.SampleSize {
		c.MaxConcurrent = c.SampleSize
	}
	if c.DirectoryTTL <= 0 {
		c.DirectoryTTL = 30 * time.Second
	}
	return c
}

// Aggregator orchestrates concurrent per-creator content fetches. One
// creator failing never fails the batch; failures are collected alongside
// the successes so callers can inspect them.
type Aggregator struct {
	directory DirectoryAPI
	content   ContentAPI
	cfg       AggregatorConfig
	dirCache  *cache.Cache
	logger    logging.Logger
}

const directoryCacheKey = "creators"

// NewAggregator creates an aggregator over the given collaborators.
func NewAggregator(directory DirectoryAPI, content ContentAPI, cfg AggregatorConfig) *Aggregator {
	cfg = cfg.withDefaults()
	if cfg.Logger == nil {
		cfg.Logger = logging.NewLogger()
	}
	return &Aggregator{
		directory: directory,
		content:   content,
		cfg:       cfg,
		dirCache: cache.New(cache.Options{
			TTL:                  cfg.DirectoryTTL,
			StaleWhileRevalidate: 2 * cfg.DirectoryTTL,
		}, cache.MetricsHooks{}),
		logger: cfg.Logger,
	}
}

type creatorResult struct {
	items []models.ContentItem
	err   error
}

// FetchBatch pulls the creator set once, fans out one content request per
// sampled creator under the concurrency ceiling, and returns the collected
// items plus per-creator failures. A non-nil error means the directory
// itself was unreachable (total upstream failure); callers should fall
// back to synthetic content.
//
// Results are assembled by creator position after all fetches settle, so
// arrival order never leaks into the output.
func (a *Aggregator) FetchBatch(ctx context.Context) ([]models.ContentItem, []models.FetchFailure, error) {
	start := time.Now()

	creators, err := a.listCreators(ctx)
	if err != nil {
		a.observeBatch("error", start)
		return nil, nil, fmt.Errorf("creator directory unavailable: %w", err)
	}

	sample := creators
	if len(sample) > a.cfg.SampleSize {
		sample = sample[:a.cfg.SampleSize]
	}
	if len(sample) == 0 {
		a.observeBatch("empty", start)
		return nil, nil, nil
	}

	results := make([]creatorResult, len(sample))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxConcurrent)
	for i, creator := range sample {
		i, creator := i, creator
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, a.cfg.FetchTimeout)
			defer cancel()

			items, err := a.content.ListRecent(fetchCtx, creator.ID, a.cfg.PerCreatorLimit, 0)
			if err != nil {
				results[i] = creatorResult{err: err}
				return nil
			}

			// Stamp the display snapshot at fetch time; later creator
			// changes are not tracked.
			snapshot := creator.Snapshot()
			for j := range items {
				items[j].CreatorID = creator.ID
				items[j].Creator = snapshot
			}
			results[i] = creatorResult{items: items}
			return nil
		})
	}
	// Tasks never return errors; failures travel in their result slot.
	_ = g.Wait()

	var items []models.ContentItem
	var failures []models.FetchFailure
	for i, res := range results {
		if res.err != nil {
			failures = append(failures, models.FetchFailure{
				CreatorID: sample[i].ID,
				Reason:    res.err.Error(),
			})
			a.countFetch("failed")
			continue
		}
		items = append(items, res.items...)
		a.countFetch("ok")
	}

	if len(failures) > 0 {
		a.logger.WithFields(logging.Fields{
			"sampled": len(sample),
			"failed":  len(failures),
		}).Warn("Aggregation batch completed with creator failures")
	}

	switch {
	case len(failures) == 0:
		a.observeBatch("full", start)
	case len(items) == 0:
		a.observeBatch("empty", start)
	default:
		a.observeBatch("partial", start)
	}

	return items, failures, nil
}

func (a *Aggregator) listCreators(ctx context.Context) ([]models.Creator, error) {
	val, ok, err := a.dirCache.Get(ctx, directoryCacheKey, func(ctx context.Context, _ string) (interface{}, bool, error) {
		creators, err := a.directory.ListCreators(ctx)
		if err != nil {
			return nil, false, err
		}
		return creators, true, nil
	})
	if err != nil || !ok {
		return nil, err
	}
	return val.([]models.Creator), nil
}

func (a *Aggregator) countFetch(status string) {
	if a.cfg.Metrics != nil {
		a.cfg.Metrics.CreatorFetches.WithLabelValues(status).Inc()
	}
}

func (a *Aggregator) observeBatch(result string, start time.Time) {
	if a.cfg.Metrics != nil {
		a.cfg.Metrics.FanoutBatches.WithLabelValues(result).Inc()
		a.cfg.Metrics.FanoutDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}
}
