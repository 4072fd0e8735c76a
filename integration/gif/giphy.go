// Package gif searches Giphy.
package gif

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"loopbot/apperror"
)

const defaultBaseURL = "https://api.giphy.com/v1"

// Client is a Giphy search client.
type Client struct {
	http    *http.Client
	apiKey  string
	baseURL string
	pick    func(n int) int
}

// NewClient creates a Giphy client. baseURL may be empty.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Client{
		http:    &http.Client{Timeout: timeout},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		pick:    rng.Intn,
	}
}

type searchResponse struct {
	Data []struct {
		URL    string `json:"url"`
		Images struct {
			Original struct {
				URL string `json:"url"`
			} `json:"original"`
		} `json:"images"`
	} `json:"data"`
}

// Random returns the URL of a random GIF among the top five results for query.
// It returns an empty string when nothing matches.
func (c *Client) Random(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", apperror.Validation("Please provide search terms.")
	}
	if c.apiKey == "" {
		return "", apperror.New(apperror.ErrExternalService, "GIPHY_API_KEY not configured", nil)
	}

	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("q", query)
	q.Set("limit", "5")
	q.Set("rating", "pg")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/gifs/search?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperror.External("giphy", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apperror.External("giphy", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", apperror.External("giphy", fmt.Errorf("decode search: %w", err))
	}
	if len(body.Data) == 0 {
		return "", nil
	}

	item := body.Data[c.pick(len(body.Data))]
	if item.Images.Original.URL != "" {
		return item.Images.Original.URL, nil
	}
	return item.URL, nil
}
