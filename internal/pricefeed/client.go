// Package pricefeed provides a REST client for an exchange's candlestick API.
// Numeric OHLCV fields are kept as strings, exactly as the feed returns them;
// callers parse what they need.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://api.binance.com"

// Candle is one OHLCV kline from the feed.
type Candle struct {
	OpenTime  int64  `json:"open_time"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Close     string `json:"close"`
	Volume    string `json:"volume"`
	CloseTime int64  `json:"close_time"`
}

// Client fetches candles from a Binance-compatible klines endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
	}
}

// FetchCandles returns the klines for symbol in [startTimeMs, endTimeMs].
// The symbol is the bare asset code (e.g. "BTC"); the feed trades USDT pairs.
func (c *Client) FetchCandles(ctx context.Context, symbol string, intervalMinutes int, startTimeMs, endTimeMs int64) ([]Candle, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%sUSDT&interval=%dm&startTime=%d&endTime=%d",
		c.baseURL, symbol, intervalMinutes, startTimeMs, endTimeMs)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("candle feed error: %d - %s", resp.StatusCode, string(body))
	}

	// Klines arrive as heterogeneous arrays:
	// [openTime, "open", "high", "low", "close", "volume", closeTime, ...]
	var raw [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode candles: %w", err)
	}

	candles := make([]Candle, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 7 {
			return nil, fmt.Errorf("malformed kline entry with %d fields", len(entry))
		}

		var candle Candle
		fields := []struct {
			idx  int
			dest interface{}
		}{
			{0, &candle.OpenTime},
			{1, &candle.Open},
			{2, &candle.High},
			{3, &candle.Low},
			{4, &candle.Close},
			{5, &candle.Volume},
			{6, &candle.CloseTime},
		}
		for _, f := range fields {
			if err := json.Unmarshal(entry[f.idx], f.dest); err != nil {
				return nil, fmt.Errorf("failed to decode kline field %d: %w", f.idx, err)
			}
		}
		candles = append(candles, candle)
	}

	return candles, nil
}
