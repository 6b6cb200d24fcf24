package visual

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aipedia/internal/core"
)

// DefaultUnsplashBaseURL is the Unsplash API root.
const DefaultUnsplashBaseURL = "https://api.unsplash.com"

// Photo is the subset of an Unsplash photo the application uses.
type Photo struct {
	ID    string     `json:"id,omitempty"`
	URLs  PhotoURLs  `json:"urls"`
	Links PhotoLinks `json:"links"`
	User  PhotoUser  `json:"user"`
}

// PhotoURLs holds rendition URLs.
type PhotoURLs struct {
	Regular string `json:"regular"`
	Small   string `json:"small,omitempty"`
}

// PhotoLinks holds page and tracking links.
type PhotoLinks struct {
	HTML             string `json:"html"`
	DownloadLocation string `json:"download_location,omitempty"`
}

// PhotoUser is the photographer.
type PhotoUser struct {
	Name string `json:"name"`
}

// Image converts the photo into an attributed article image.
func (p Photo) Image() core.Image {
	return core.Image{
		URL:                  p.URLs.Regular,
		SourceAttributionURL: p.Links.HTML,
		CreditLabel:          CreditLabel(p.User.Name),
	}
}

// CreditLabel formats the photographer attribution.
func CreditLabel(name string) string {
	return fmt.Sprintf("Image by %s on Unsplash", name)
}

// UnsplashClient talks to the Unsplash API with an access key. Only the proxy
// holds one.
type UnsplashClient struct {
	accessKey  string
	baseURL    string
	httpClient *http.Client
}

// NewUnsplashClient creates a new Unsplash API client
func NewUnsplashClient(accessKey, baseURL string) *UnsplashClient {
	if baseURL == "" {
		baseURL = DefaultUnsplashBaseURL
	}
	return &UnsplashClient{
		accessKey:  accessKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// RandomPhoto returns a random photo matching query.
func (c *UnsplashClient) RandomPhoto(ctx context.Context, query string) (*Photo, error) {
	endpoint := fmt.Sprintf("%s/photos/random?query=%s", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unsplash request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read unsplash response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &core.BoundaryError{
			Operation: "image",
			Status:    resp.StatusCode,
			Message:   strings.TrimSpace(string(body)),
		}
	}

	var photo Photo
	if err := json.Unmarshal(body, &photo); err != nil {
		return nil, fmt.Errorf("failed to decode unsplash photo: %w", err)
	}
	return &photo, nil
}

// TrackDownload notifies Unsplash that a photo was used, as its API guidelines require.
func (c *UnsplashClient) TrackDownload(ctx context.Context, downloadLocation string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadLocation, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download tracking failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &core.BoundaryError{Operation: "image", Status: resp.StatusCode}
	}
	return nil
}
