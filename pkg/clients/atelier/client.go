// Package atelier provides a typed client for the artwork content service,
// which serves each creator agent's generated pieces.
package atelier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/failsafe-go/failsafe-go"

	"github.com/memedici/artfeed/pkg/clients"
	"github.com/memedici/artfeed/pkg/logging"
	"github.com/memedici/artfeed/pkg/models"
)

// Client represents an atelier API client
type Client struct {
	baseURL      string
	httpClient   *http.Client
	serviceToken string
	logger       logging.Logger
	httpExecutor failsafe.Executor[*http.Response]
}

// Config represents the configuration for the atelier client
type Config struct {
	BaseURL              string
	ServiceToken         string
	Timeout              time.Duration
	Logger               logging.Logger
	ExecutorConfig       *clients.HTTPExecutorConfig
	CircuitBreakerConfig *clients.CircuitBreakerConfig
}

// NewClient creates a new atelier API client
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	execConfig := clients.DefaultHTTPExecutorConfig()
	if config.ExecutorConfig != nil {
		execConfig = *config.ExecutorConfig
	}
	if config.CircuitBreakerConfig != nil {
		execConfig.CircuitBreaker = clients.NewCircuitBreaker(*config.CircuitBreakerConfig)
	}

	return &Client{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: clients.DefaultTransport(),
		},
		serviceToken: config.ServiceToken,
		logger:       config.Logger,
		httpExecutor: clients.NewHTTPExecutor(execConfig),
	}
}

// listResponse is the wire shape of a per-creator artwork listing.
type listResponse struct {
	Success  bool          `json:"success"`
	AgentID  string        `json:"agent_id"`
	Artworks []wireArtwork `json:"artworks"`
	Total    int           `json:"total_count"`
	Error    string        `json:"error,omitempty"`
}

type wireArtwork struct {
	ID          string   `json:"id"`
	ArtworkType string   `json:"artwork_type"`
	Prompt      string   `json:"prompt"`
	FileURL     string   `json:"file_url"`
	CreatedAt   string   `json:"created_at"`
	LikeCount   int64    `json:"like_count"`
	Price       *float64 `json:"price,omitempty"`
}

// ListRecent returns a creator's most recent content, newest first.
// An upstream success=false is reported as an error so the aggregator can
// treat transport failures and application failures uniformly.
func (c *Client) ListRecent(ctx context.Context, creatorID string, limit, offset int) ([]models.ContentItem, error) {
	endpoint := fmt.Sprintf("%s/artworks/agents/%s?limit=%d&offset=%d&sort=recent",
		c.baseURL, url.PathEscape(creatorID), limit, offset)

	resp, err := clients.ExecuteHTTP(ctx, c.httpExecutor, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		if c.serviceToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.serviceToken)
		}
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call atelier for creator %s: %w", creatorID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read atelier response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("atelier returned status %d: %s", resp.StatusCode, string(body))
	}

	var listing listResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse atelier response: %w", err)
	}
	if !listing.Success {
		return nil, fmt.Errorf("atelier listing rejected for creator %s: %s", creatorID, listing.Error)
	}

	items := make([]models.ContentItem, 0, len(listing.Artworks))
	for _, a := range listing.Artworks {
		items = append(items, models.ContentItem{
			ID:        a.ID,
			Kind:      parseKind(a.ArtworkType),
			Title:     a.Prompt,
			MediaURL:  a.FileURL,
			CreatedAt: parseTimestamp(a.CreatedAt),
			CreatorID: creatorID,
			LikeCount: a.LikeCount,
			Price:     a.Price,
		})
	}
	return items, nil
}

func parseKind(raw string) models.ContentKind {
	switch raw {
	case "video":
		return models.KindVideo
	case "product":
		return models.KindProduct
	default:
		return models.KindImage
	}
}

// parseTimestamp tolerates missing or malformed timestamps; the merger sorts
// zero times last rather than failing the item.
func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	// Some upstreams emit epoch seconds
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC()
	}
	return time.Time{}
}
