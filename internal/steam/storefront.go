package steam

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/aheadley/steam-omakase/internal/domain"
)

// DefaultStoreBaseURL is the public Steam storefront endpoint
const DefaultStoreBaseURL = "https://store.steampowered.com"

// StorefrontConfig holds storefront client configuration
type StorefrontConfig struct {
	BaseURL string
}

// StorefrontClient fetches per-app metadata from the storefront API. The
// response is keyed by the requested app id:
//
//	{"440": {"success": true, "data": {...}}}
//
// so fields are pulled out with gjson paths rather than a fixed struct.
// Request deadlines come from the caller's context; the client sets none of
// its own so the resolver controls the per-lookup timeout.
type StorefrontClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewStorefrontClient creates a storefront API client
func NewStorefrontClient(cfg StorefrontConfig, logger *slog.Logger) *StorefrontClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultStoreBaseURL
	}
	return &StorefrontClient{
		baseURL: baseURL,
		client:  &http.Client{},
		logger:  logger,
	}
}

// GetAppDetails fetches storefront metadata for a single app. An app the
// storefront reports as unavailable yields domain.ErrAppNotFound.
func (c *StorefrontClient) GetAppDetails(ctx context.Context, id domain.AppID) (*domain.AppSummary, error) {
	params := url.Values{"appids": {strconv.FormatUint(uint64(id), 10)}}
	reqURL := c.baseURL + "/api/appdetails/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d for app %d", domain.ErrUpstream, resp.StatusCode, id)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	entry := gjson.GetBytes(body, strconv.FormatUint(uint64(id), 10))
	if !entry.Exists() || !entry.Get("success").Bool() {
		return nil, domain.ErrAppNotFound
	}

	data := entry.Get("data")
	summary := &domain.AppSummary{
		ID:   id,
		Name: data.Get("name").String(),
		Type: data.Get("type").String(),
		Platforms: domain.PlatformSupport{
			Windows: data.Get("platforms.windows").Bool(),
			Mac:     data.Get("platforms.mac").Bool(),
			Linux:   data.Get("platforms.linux").Bool(),
		},
	}
	for _, category := range data.Get("categories").Array() {
		summary.Categories = append(summary.Categories, int(category.Get("id").Int()))
	}
	return summary, nil
}
