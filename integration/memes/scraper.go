// Package memes scrapes meme images from Nitter instances with a Reddit fallback.
package memes

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"loopbot/utils"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultInstances are tried in order.
var DefaultInstances = []string{
	"https://nitter.net",
	"https://nitter.snopyta.org",
	"https://nitter.1d4.us",
}

const defaultRedditURL = "https://www.reddit.com/r/memes/top/.json"

// Query describes one scrape run.
type Query struct {
	Terms string
	Limit int
	// Instances overrides the scraper's instance list, e.g. to hit only the first one.
	Instances []string
	// RedditFallback enables r/memes when no instance yields images.
	RedditFallback bool
}

// Scraper collects image URLs. Images already posted by an earlier run are skipped.
type Scraper struct {
	instances []string
	redditURL string
	timeout   time.Duration
	seen      utils.SeenStore
}

// NewScraper creates a scraper. instances and redditURL may be empty to use the defaults.
func NewScraper(instances []string, redditURL string, timeout time.Duration, seen utils.SeenStore) *Scraper {
	if len(instances) == 0 {
		instances = DefaultInstances
	}
	if redditURL == "" {
		redditURL = defaultRedditURL
	}
	return &Scraper{instances: instances, redditURL: redditURL, timeout: timeout, seen: seen}
}

func (s *Scraper) newCollector() *colly.Collector {
	c := colly.NewCollector(colly.UserAgent(userAgent))
	c.SetRequestTimeout(s.timeout)
	return c
}

// Scrape returns up to q.Limit new image URLs.
func (s *Scraper) Scrape(ctx context.Context, q Query) ([]string, error) {
	instances := q.Instances
	if len(instances) == 0 {
		instances = s.instances
	}

	found := newCollection(ctx, s.seen, q.Limit)
	for _, base := range instances {
		if ctx.Err() != nil {
			return found.urls, ctx.Err()
		}
		if err := s.scrapeInstance(base, q.Terms, found); err != nil {
			log.Printf("⚠️ [memes] %s failed: %v", base, err)
			continue
		}
		if len(found.urls) > 0 {
			break
		}
	}

	if len(found.urls) == 0 && q.RedditFallback && ctx.Err() == nil {
		if err := s.scrapeReddit(q.Limit, found); err != nil {
			log.Printf("⚠️ [memes] reddit fallback failed: %v", err)
		}
	}
	return found.urls, nil
}

func (s *Scraper) scrapeInstance(base, terms string, found *collection) error {
	base = strings.TrimRight(base, "/")
	c := s.newCollector()
	c.OnHTML("img.attachment-image", func(e *colly.HTMLElement) {
		found.add(absolute(base, e.Attr("src")))
	})
	return c.Visit(base + "/search?f=images&q=" + url.QueryEscape(terms))
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				URL                  string `json:"url"`
				URLOverriddenByDest string `json:"url_overridden_by_dest"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (s *Scraper) scrapeReddit(limit int, found *collection) error {
	c := s.newCollector()
	var parseErr error
	c.OnResponse(func(r *colly.Response) {
		var listing redditListing
		if err := json.Unmarshal(r.Body, &listing); err != nil {
			parseErr = fmt.Errorf("decode reddit listing: %w", err)
			return
		}
		for _, child := range listing.Data.Children {
			u := child.Data.URLOverriddenByDest
			if u == "" {
				u = child.Data.URL
			}
			if isImage(u) {
				found.add(u)
			}
		}
	})
	if err := c.Visit(fmt.Sprintf("%s?limit=%d&t=day", s.redditURL, limit)); err != nil {
		return err
	}
	return parseErr
}

type collection struct {
	ctx   context.Context
	seen  utils.SeenStore
	limit int
	local map[string]bool
	urls  []string
}

func newCollection(ctx context.Context, seen utils.SeenStore, limit int) *collection {
	return &collection{ctx: ctx, seen: seen, limit: limit, local: make(map[string]bool)}
}

func (c *collection) add(u string) {
	if u == "" || len(c.urls) >= c.limit || c.local[u] {
		return
	}
	c.local[u] = true
	if c.seen != nil {
		isNew, err := c.seen.MarkSeen(c.ctx, u)
		if err != nil {
			// Dedupe store down: post anyway.
			log.Printf("⚠️ [memes] seen store unavailable: %v", err)
		} else if !isNew {
			return
		}
	}
	c.urls = append(c.urls, u)
}

func absolute(base, src string) string {
	switch {
	case src == "":
		return ""
	case strings.HasPrefix(src, "//"):
		return "https:" + src
	case strings.HasPrefix(src, "/"):
		return base + src
	}
	return src
}

func isImage(u string) bool {
	lower := strings.ToLower(u)
	for _, ext := range []string{".jpg", ".png", ".gif"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
