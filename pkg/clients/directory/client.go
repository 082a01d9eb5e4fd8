// Package directory provides a typed client for the creator directory
// service, which knows every creator agent and its studio assignment.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"

	"github.com/memedici/artfeed/pkg/clients"
	"github.com/memedici/artfeed/pkg/logging"
	"github.com/memedici/artfeed/pkg/models"
)

// Client represents a directory API client
type Client struct {
	baseURL      string
	httpClient   *http.Client
	serviceToken string
	logger       logging.Logger
	httpExecutor failsafe.Executor[*http.Response]
}

// Config represents the configuration for the directory client
type Config struct {
	BaseURL              string
	ServiceToken         string
	Timeout              time.Duration
	Logger               logging.Logger
	ExecutorConfig       *clients.HTTPExecutorConfig
	CircuitBreakerConfig *clients.CircuitBreakerConfig
}

// NewClient creates a new directory API client
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

// listResponse is the wire shape of the directory's agent listing.
type listResponse struct {
	Success bool        `json:"success"`
	Agents  []wireAgent `json:"agents"`
	Total   int         `json:"total"`
	Error   string      `json:"error,omitempty"`
}

type wireAgent struct {
	AgentID string `json:"agent_id"`
	Avatar  string `json:"avatar_url"`
	Studio  struct {
		Name     string `json:"name"`
		Theme    string `json:"theme"`
		ArtStyle string `json:"art_style"`
	} `json:"studio"`
	Persona struct {
		Name string `json:"name"`
	} `json:"persona"`
}

// ListCreators returns the current set of creator agents. The directory does
// not paginate at this layer; the aggregator caps how many it consumes.
func (c *Client) ListCreators(ctx context.Context) ([]models.Creator, error) {
	url := c.baseURL + "/agents"

	resp, err := clients.ExecuteHTTP(ctx, c.httpExecutor, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		if c.serviceToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.serviceToken)
		}
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call directory: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned status %d: %s", resp.StatusCode, string(body))
	}

	var listing listResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse directory response: %w", err)
	}
	if !listing.Success {
		return nil, fmt.Errorf("directory listing rejected: %s", listing.Error)
	}

	creators := make([]models.Creator, 0, len(listing.Agents))
	for _, a := range listing.Agents {
		name := a.Persona.Name
		if name == "" {
			name = a.AgentID
		}
		creators = append(creators, models.Creator{
			ID:          a.AgentID,
			DisplayName: name,
			AvatarURL:   a.Avatar,
			StudioName:  a.Studio.Name,
			Style:       a.Studio.ArtStyle,
		})
	}
	return creators, nil
}
