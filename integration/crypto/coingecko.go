// Package crypto fetches market data from CoinGecko and runs live ticker tasks.
package crypto

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"

	"loopbot/apperror"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Coin is one entry of the /coins/markets response.
type Coin struct {
	ID        string   `json:"id"`
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	Image     string   `json:"image"`
	Price     *float64 `json:"current_price"`
	Change1h  *float64 `json:"price_change_percentage_1h_in_currency"`
	Change24h *float64 `json:"price_change_percentage_24h_in_currency"`
	Change7d  *float64 `json:"price_change_percentage_7d_in_currency"`
}

// Client is a minimal CoinGecko client.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a client with the given request timeout. baseURL may be empty.
func NewClient(timeout time.Duration, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{http: &http.Client{Timeout: timeout}, baseURL: strings.TrimRight(baseURL, "/")}
}

// Markets returns USD market data for the given coin IDs, ordered by market cap.
func (c *Client) Markets(ctx context.Context, ids []string) ([]Coin, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("ids", strings.Join(ids, ","))
	q.Set("order", "market_cap_desc")
	q.Set("sparkline", "false")
	q.Set("price_change_percentage", "1h,24h,7d")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/coins/markets?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.External("coingecko", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.External("coingecko", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var coins []Coin
	if err := json.NewDecoder(resp.Body).Decode(&coins); err != nil {
		return nil, apperror.External("coingecko", fmt.Errorf("decode markets: %w", err))
	}
	if len(coins) == 0 {
		return nil, apperror.External("coingecko", fmt.Errorf("no market data for %v", ids))
	}
	return coins, nil
}

// FormatChange renders a percentage change with a trend arrow.
func FormatChange(v *float64) string {
	if v == nil {
		return "—"
	}
	if *v >= 0 {
		return fmt.Sprintf("📈 +%.2f%%", *v)
	}
	return fmt.Sprintf("📉 %.2f%%", *v)
}

// FormatPrice renders a USD price with thousands separators.
func FormatPrice(v *float64) string {
	if v == nil {
		return "—"
	}
	return "$" + humanize.FormatFloat("#,###.##", *v)
}

// Embed builds the price card for a coin, green when the 24h change is non-negative.
func (c Coin) Embed(now time.Time) *discordgo.MessageEmbed {
	color := 0xe74c3c
	if c.Change24h != nil && *c.Change24h >= 0 {
		color = 0x2ecc71
	}
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s — %s", strings.ToUpper(c.Symbol), FormatPrice(c.Price)),
		Description: "| 1h | 24h | 7d |\n|:---:|:---:|:---:|\n" +
			fmt.Sprintf("| %s | %s | %s |", FormatChange(c.Change1h), FormatChange(c.Change24h), FormatChange(c.Change7d)),
		Color:     color,
		Timestamp: now.UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "Data provided by CoinGecko"},
	}
	if c.Image != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: c.Image}
	}
	return embed
}
