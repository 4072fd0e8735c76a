// Package music searches the Spotify catalog with client-credentials auth.
package music

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"loopbot/apperror"
)

const (
	defaultTokenURL = "https://accounts.spotify.com/api/token"
	defaultAPIURL   = "https://api.spotify.com/v1"
	resultLimit     = 5
)

// SearchType is the kind of catalog item to search for.
type SearchType string

const (
	Track  SearchType = "track"
	Album  SearchType = "album"
	Artist SearchType = "artist"
)

// ParseQuery splits "[track|album|artist] terms" into a type and search terms. Track is the default.
func ParseQuery(args string) (SearchType, string) {
	fields := strings.Fields(args)
	if len(fields) > 0 {
		switch t := SearchType(strings.ToLower(fields[0])); t {
		case Track, Album, Artist:
			return t, strings.Join(fields[1:], " ")
		}
	}
	return Track, strings.Join(fields, " ")
}

// Result is one search hit.
type Result struct {
	Name    string
	Artists []string
	Genres  []string
	URL     string
}

// Line renders r the way search results are listed in chat.
func (r Result) Line(t SearchType) string {
	if t == Artist {
		return fmt.Sprintf("%s (Genres: %s) - %s", r.Name, strings.Join(r.Genres, ", "), r.URL)
	}
	return fmt.Sprintf("%s by %s - %s", r.Name, strings.Join(r.Artists, ", "), r.URL)
}

// Client is a Spotify Web API search client.
type Client struct {
	creds   clientcredentials.Config
	apiURL  string
	timeout time.Duration
}

// NewClient creates a client. tokenURL and apiURL may be empty to use Spotify's endpoints.
func NewClient(clientID, clientSecret, tokenURL, apiURL string, timeout time.Duration) *Client {
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Client{
		creds: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		},
		apiURL:  strings.TrimRight(apiURL, "/"),
		timeout: timeout,
	}
}

type artistRef struct {
	Name string `json:"name"`
}

type searchItem struct {
	Name         string            `json:"name"`
	Genres       []string          `json:"genres"`
	Artists      []artistRef       `json:"artists"`
	ExternalURLs map[string]string `json:"external_urls"`
}

type searchPage struct {
	Items []searchItem `json:"items"`
}

// Search returns up to five catalog items of type t matching query.
func (c *Client) Search(ctx context.Context, t SearchType, query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperror.Validation("Please provide search terms.")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: c.timeout})
	httpClient := c.creds.Client(ctx)

	q := url.Values{}
	q.Set("q", query)
	q.Set("type", string(t))
	q.Set("limit", fmt.Sprint(resultLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, apperror.External("spotify", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperror.External("spotify", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body map[string]searchPage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperror.External("spotify", fmt.Errorf("decode search: %w", err))
	}

	page := body[string(t)+"s"]
	results := make([]Result, 0, len(page.Items))
	for _, item := range page.Items {
		r := Result{Name: item.Name, Genres: item.Genres, URL: item.ExternalURLs["spotify"]}
		for _, a := range item.Artists {
			r.Artists = append(r.Artists, a.Name)
		}
		results = append(results, r)
	}
	return results, nil
}
