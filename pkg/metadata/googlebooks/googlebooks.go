// Package googlebooks adapts the Google Books volumes API to the metadata
// search-provider interface.
package googlebooks

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hondana/hondana/pkg/config"
	"github.com/hondana/hondana/pkg/errcodes"
	"github.com/hondana/hondana/pkg/metadata"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

const providerName = "Google Books"

type Client struct {
	baseURL    string
	apiKey     string
	maxResults int
	httpClient *http.Client
}

func New(cfg *config.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.GoogleBooksBaseURL, "/"),
		apiKey:     cfg.GoogleBooksAPIKey,
		maxResults: cfg.GoogleBooksMaxResults,
		httpClient: &http.Client{Timeout: cfg.GoogleBooksTimeout},
	}
}

type volumeInfo struct {
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Categories  []string `json:"categories"`
	Description string   `json:"description"`
}

type volumeItem struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type searchResponse struct {
	Items []volumeItem `json:"items"`
}

// Search queries the volumes endpoint with intitle:/inauthor: terms and
// returns normalized results. An empty query returns no results without a
// request.
func (c *Client) Search(ctx context.Context, author, title string) ([]metadata.SearchResult, error) {
	query := buildQuery(author, title)
	if query == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", fmt.Sprintf("%d", c.maxResults))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	var payload searchResponse
	err := c.getJSON(ctx, c.baseURL+"/volumes?"+params.Encode(), &payload)
	if err != nil {
		return nil, err
	}

	results := make([]metadata.SearchResult, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.ID == "" {
			continue
		}
		results = append(results, metadata.SearchResult{
			ResultID:    item.ID,
			Title:       item.VolumeInfo.Title,
			Author:      strings.Join(item.VolumeInfo.Authors, ", "),
			Categories:  item.VolumeInfo.Categories,
			Description: item.VolumeInfo.Description,
			Source:      metadata.SourceGoogleBooks,
		})
	}
	return results, nil
}

// GetTags fetches a single volume and converts its category taxonomy into
// topic tag candidates, splitting each category path on "/" and
// de-duplicating case-insensitively.
func (c *Client) GetTags(ctx context.Context, resultID string) ([]metadata.TagCandidate, error) {
	if resultID == "" {
		return nil, nil
	}

	params := url.Values{}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	endpoint := c.baseURL + "/volumes/" + url.PathEscape(resultID)
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var payload volumeItem
	err := c.getJSON(ctx, endpoint, &payload)
	if err != nil {
		return nil, err
	}

	return CategoryTags(payload.VolumeInfo.Categories), nil
}

// CategoryTags splits category paths into de-duplicated topic tag candidates.
func CategoryTags(categories []string) []metadata.TagCandidate {
	tags := make([]metadata.TagCandidate, 0, len(categories))
	seen := make(map[string]struct{})
	for _, category := range categories {
		for _, part := range strings.Split(category, "/") {
			name := strings.Join(strings.Fields(part), " ")
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			tags = append(tags, metadata.TagCandidate{TagText: "topic:" + name})
		}
	}
	return tags
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return errcodes.ProviderTimeout(providerName)
		}
		return errcodes.ProviderUnavailable(providerName)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errcodes.ProviderUnavailable(providerName)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errcodes.ProviderMalformed(providerName + " response malformed.")
	}
	return nil
}

func buildQuery(author, title string) string {
	parts := make([]string, 0, 2)
	if title != "" {
		parts = append(parts, "intitle:"+title)
	}
	if author != "" {
		parts = append(parts, "inauthor:"+author)
	}
	return strings.Join(parts, " ")
}
