// Package market provides the market-data collaborator: a small HTTP client
// for a LunarCrush-style coin metrics API. The chat core invokes it
// opaquely through the function registry.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the default HTTP timeout for market API requests.
	DefaultTimeout = 30 * time.Second
)

// Client talks to the coin metrics API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a market data client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// NewClientWithHTTPClient creates a client with a custom HTTP client, used
// by tests to point at an httptest server.
func NewClientWithHTTPClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	return &Client{apiKey: apiKey, baseURL: baseURL, httpClient: httpClient}
}

// Coin is the per-coin summary returned by CoinList.
type Coin struct {
	Symbol           string   `json:"symbol"`
	Name             string   `json:"name"`
	Price            *float64 `json:"price"`
	PercentChange1h  *float64 `json:"percent_change_1h"`
	PercentChange24h *float64 `json:"percent_change_24h"`
	PercentChange7d  *float64 `json:"percent_change_7d"`
	Volume24h        *float64 `json:"volume_24h"`
	MarketCap        *float64 `json:"market_cap"`
	MarketCapRank    *int     `json:"market_cap_rank"`
	Sentiment        *float64 `json:"sentiment"`
	SocialVolume24h  *float64 `json:"social_volume_24h"`
	SocialDominance  *float64 `json:"social_dominance"`
}

// CoinList fetches summary metrics for all tracked coins.
func (c *Client) CoinList(ctx context.Context) (map[string]interface{}, error) {
	var response struct {
		Data []Coin `json:"data"`
	}
	if err := c.get(ctx, "/public/coins/list/v1", &response); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"data":  response.Data,
		"count": len(response.Data),
	}, nil
}

// CoinByID fetches detailed metrics for one coin and formats the headline
// numbers for direct presentation by the model.
func (c *Client) CoinByID(ctx context.Context, coinID string) (map[string]interface{}, error) {
	if coinID == "" {
		return nil, fmt.Errorf("coin_id is required")
	}

	var response struct {
		Data   map[string]interface{} `json:"data"`
		Config map[string]interface{} `json:"config"`
	}
	if err := c.get(ctx, fmt.Sprintf("/public/coins/%s/v1", coinID), &response); err != nil {
		return nil, err
	}
	if response.Data == nil {
		return nil, fmt.Errorf("no data for coin %q", coinID)
	}

	data := response.Data
	info := map[string]interface{}{
		"id":     data["id"],
		"name":   data["name"],
		"symbol": data["symbol"],

		"price_usd":  FormatPrice(floatField(data, "price")),
		"market_cap": FormatLargeNumber(floatField(data, "market_cap")),
		"volume_24h": FormatLargeNumber(floatField(data, "volume_24h")),

		"market_cap_rank": data["market_cap_rank"],
		"change_24h":      FormatPercent(floatField(data, "percent_change_24h")),
		"change_7d":       FormatPercent(floatField(data, "percent_change_7d")),
		"change_30d":      FormatPercent(floatField(data, "percent_change_30d")),

		// Raw values for calculations
		"raw_price":      data["price"],
		"raw_market_cap": data["market_cap"],
		"raw_volume_24h": data["volume_24h"],
	}
	if topic, ok := response.Config["topic"]; ok {
		info["topic"] = topic
	}
	return info, nil
}

// CoinTimeSeries fetches historical data for one coin.
func (c *Client) CoinTimeSeries(ctx context.Context, coinID, interval string) (map[string]interface{}, error) {
	if coinID == "" {
		return nil, fmt.Errorf("coin_id is required")
	}
	if interval == "" {
		interval = "1h"
	}

	var response map[string]interface{}
	path := fmt.Sprintf("/public/coins/%s/time-series/v2?interval=%s", coinID, interval)
	if err := c.get(ctx, path, &response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("market API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("market API error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func floatField(m map[string]interface{}, key string) *float64 {
	if v, ok := m[key].(float64); ok {
		return &v
	}
	return nil
}
