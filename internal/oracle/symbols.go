package oracle

import (
	"errors"
	"fmt"
	"strings"
)

// Symbol is a settleable asset code understood by the price feed.
type Symbol string

const (
	SymbolBTC  Symbol = "BTC"
	SymbolETH  Symbol = "ETH"
	SymbolSOL  Symbol = "SOL"
	SymbolHYPE Symbol = "HYPE"
)

// ErrUnmappedSymbol signals that a market question names no known asset.
// The oracle never falls back to a default symbol: settling a market against
// a guessed asset would be silently wrong, so this is a hard error until the
// question text is corrected.
var ErrUnmappedSymbol = errors.New("oracle: no known asset keyword in question")

// symbolKeywords is the keyword table for question-text matching, in fixed
// priority order. Matching is case-insensitive substring, first match wins.
var symbolKeywords = []struct {
	keywords []string
	symbol   Symbol
}{
	{[]string{"bitcoin", "btc"}, SymbolBTC},
	{[]string{"ethereum", "eth"}, SymbolETH},
	{[]string{"solana", "sol"}, SymbolSOL},
	{[]string{"hyperliquid", "hype"}, SymbolHYPE},
}

// ExtractSymbol determines which asset a market question is about.
func ExtractSymbol(question string) (Symbol, error) {
	lowered := strings.ToLower(question)
	for _, entry := range symbolKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lowered, keyword) {
				return entry.symbol, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnmappedSymbol, question)
}
