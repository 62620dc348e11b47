package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stillmind/api/internal/config"
)

// ErrAssetNotFound is returned when the catalog has no entry for an id.
var ErrAssetNotFound = errors.New("catalog asset not found")

// MusicCatalog defines the lookup contract for background-music assets.
type MusicCatalog interface {
	Lookup(ctx context.Context, musicID string) (*CatalogAsset, error)
	FetchAsset(ctx context.Context, asset *CatalogAsset) ([]byte, error)
	IsConfigured() bool
}

// CatalogAsset describes one pre-rendered background track.
type CatalogAsset struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	URL      string  `json:"url"`
	VolumeDb float64 `json:"volume_db"`
}

// CatalogClient implements MusicCatalog over the catalog HTTP service.
type CatalogClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewCatalogClient creates a new music catalog client.
func NewCatalogClient(cfg *config.CatalogConfig) *CatalogClient {
	return &CatalogClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    cfg.BaseURL,
	}
}

// IsConfigured returns true when a catalog base URL is set.
func (c *CatalogClient) IsConfigured() bool {
	return c.baseURL != ""
}

// Lookup resolves a catalog id to its asset URL and recommended volume.
func (c *CatalogClient) Lookup(ctx context.Context, musicID string) (*CatalogAsset, error) {
	endpoint := fmt.Sprintf("%s/v1/assets/%s", c.baseURL, musicID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, musicID)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("catalog error %d: %s", resp.StatusCode, string(b))
	}

	var asset CatalogAsset
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	return &asset, nil
}

// FetchAsset downloads the asset's audio bytes.
func (c *CatalogClient) FetchAsset(ctx context.Context, asset *CatalogAsset) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch catalog asset: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
