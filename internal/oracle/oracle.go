// Package oracle resolves a market's real-world settlement price: it maps
// question text to an asset symbol and samples the close of the last 1-minute
// candle ending at the market's end timestamp.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"rangebet-market/internal/pricefeed"
)

// ErrFeedUnavailable signals a transport-level price feed failure
// (network, auth, malformed payload). Transient; safe to retry with backoff.
// Distinct from "feed reachable but no candle in window", which is a nil
// PriceData, not an error.
var ErrFeedUnavailable = errors.New("oracle: price feed unavailable")

// CandleFeed is the external price feed contract.
type CandleFeed interface {
	FetchCandles(ctx context.Context, symbol string, intervalMinutes int, startTimeMs, endTimeMs int64) ([]pricefeed.Candle, error)
}

// PriceData is the sampled settlement price with the raw candle it came from.
type PriceData struct {
	Close  float64
	Candle pricefeed.Candle
}

// Oracle samples settlement prices from a candle feed.
type Oracle struct {
	feed CandleFeed
}

func New(feed CandleFeed) *Oracle {
	return &Oracle{feed: feed}
}

// FetchClose returns the close of the last 1-minute candle in the window
// [atTime - 60s, atTime], or nil if the feed has no data there yet. A nil
// result is a recoverable "try again later" condition.
func (o *Oracle) FetchClose(ctx context.Context, symbol Symbol, atTime time.Time) (*PriceData, error) {
	endMs := atTime.UnixMilli()
	startMs := atTime.Add(-60 * time.Second).UnixMilli()

	candles, err := o.feed.FetchCandles(ctx, string(symbol), 1, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}

	if len(candles) == 0 {
		return nil, nil
	}

	last := candles[len(candles)-1]
	closePrice, err := strconv.ParseFloat(last.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable close %q", ErrFeedUnavailable, last.Close)
	}

	return &PriceData{Close: closePrice, Candle: last}, nil
}
