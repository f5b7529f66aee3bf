package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"rangebet-market/internal/pricefeed"
)

func TestExtractSymbol(t *testing.T) {
	cases := []struct {
		question string
		want     Symbol
	}{
		{"Will Bitcoin reach $100k?", SymbolBTC},
		{"BTC above 70000 by Friday?", SymbolBTC},
		{"Will ETHEREUM close above $4000?", SymbolETH},
		{"eth to 5k", SymbolETH},
		{"Solana above $200 at noon?", SymbolSOL},
		{"Will SOL dip under 150?", SymbolSOL},
		{"Hyperliquid above $50?", SymbolHYPE},
		{"HYPE new all time high?", SymbolHYPE},
	}

	for _, tc := range cases {
		got, err := ExtractSymbol(tc.question)
		if err != nil {
			t.Errorf("ExtractSymbol(%q) failed: %v", tc.question, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ExtractSymbol(%q) = %s, want %s", tc.question, got, tc.want)
		}
	}
}

func TestExtractSymbolPriorityOrder(t *testing.T) {
	// Both assets appear: the fixed priority order (BTC before ETH) decides.
	got, err := ExtractSymbol("Will Ethereum flip Bitcoin this year?")
	if err != nil {
		t.Fatalf("ExtractSymbol failed: %v", err)
	}
	if got != SymbolBTC {
		t.Errorf("ExtractSymbol = %s, want BTC (first match in priority order)", got)
	}
}

func TestExtractSymbolUnmapped(t *testing.T) {
	for _, question := range []string{"Will Dogecoin moon?", "Will it rain tomorrow?", ""} {
		if _, err := ExtractSymbol(question); !errors.Is(err, ErrUnmappedSymbol) {
			t.Errorf("ExtractSymbol(%q): expected ErrUnmappedSymbol, got %v", question, err)
		}
	}
}

type fakeFeed struct {
	candles []pricefeed.Candle
	err     error

	gotSymbol   string
	gotInterval int
	gotStartMs  int64
	gotEndMs    int64
}

func (f *fakeFeed) FetchCandles(ctx context.Context, symbol string, intervalMinutes int, startTimeMs, endTimeMs int64) ([]pricefeed.Candle, error) {
	f.gotSymbol = symbol
	f.gotInterval = intervalMinutes
	f.gotStartMs = startTimeMs
	f.gotEndMs = endTimeMs
	return f.candles, f.err
}

func TestFetchCloseUsesLastCandleInWindow(t *testing.T) {
	feed := &fakeFeed{
		candles: []pricefeed.Candle{
			{Close: "42000.50", OpenTime: 1},
			{Close: "42100.25", OpenTime: 2},
		},
	}
	o := New(feed)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := o.FetchClose(context.Background(), SymbolBTC, at)
	if err != nil {
		t.Fatalf("FetchClose failed: %v", err)
	}
	if data == nil {
		t.Fatal("expected price data, got nil")
	}

	if data.Close != 42100.25 {
		t.Errorf("Close = %v, want 42100.25", data.Close)
	}
	if feed.gotSymbol != "BTC" || feed.gotInterval != 1 {
		t.Errorf("feed queried with symbol=%s interval=%d", feed.gotSymbol, feed.gotInterval)
	}
	if feed.gotEndMs != at.UnixMilli() || feed.gotStartMs != at.Add(-time.Minute).UnixMilli() {
		t.Errorf("window [%d, %d] does not match [t-60s, t]", feed.gotStartMs, feed.gotEndMs)
	}
}

func TestFetchCloseNoData(t *testing.T) {
	o := New(&fakeFeed{})

	data, err := o.FetchClose(context.Background(), SymbolETH, time.Now())
	if err != nil {
		t.Fatalf("expected nil error for empty window, got %v", err)
	}
	if data != nil {
		t.Errorf("expected nil price data, got %+v", data)
	}
}

func TestFetchCloseFeedError(t *testing.T) {
	o := New(&fakeFeed{err: errors.New("connection refused")})

	if _, err := o.FetchClose(context.Background(), SymbolSOL, time.Now()); !errors.Is(err, ErrFeedUnavailable) {
		t.Errorf("expected ErrFeedUnavailable, got %v", err)
	}
}

func TestFetchCloseMalformedClose(t *testing.T) {
	o := New(&fakeFeed{candles: []pricefeed.Candle{{Close: "not-a-number"}}})

	if _, err := o.FetchClose(context.Background(), SymbolBTC, time.Now()); !errors.Is(err, ErrFeedUnavailable) {
		t.Errorf("expected ErrFeedUnavailable for malformed close, got %v", err)
	}
}
