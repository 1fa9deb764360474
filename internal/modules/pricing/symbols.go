package pricing

import (
	"strings"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
)

// bondSymbols maps treasury periods to the yield symbols the price feed
// stores them under.
var bondSymbols = map[string]string{
	"3MO": "^IRX",
	"5Y":  "^FVX",
	"10Y": "^TNX",
	"30Y": "^TYX",
}

// commoditySymbols maps common commodity names to the proxy ETFs used as
// their price source.
var commoditySymbols = map[string]string{
	"GOLD":    "GLD",
	"SILVER":  "SLV",
	"OIL":     "USO",
	"NATGAS":  "UNG",
	"COPPER":  "CPER",
	"URANIUM": "URA",
}

// FeedSymbol converts a user-facing ticker to the symbol the price feed
// indexes it under. Lookup tables differ per asset class: crypto tickers
// are suffixed with the quote currency, bond periods map to yield symbols,
// and commodities map to proxy ETFs. Stocks pass through unchanged.
func FeedSymbol(ticker string, class domain.AssetClass) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))

	switch class {
	case domain.AssetStock:
		return t
	case domain.AssetCrypto:
		if strings.Contains(t, "-") {
			return t
		}
		return t + "-USD"
	case domain.AssetBond:
		if mapped, ok := bondSymbols[t]; ok {
			return mapped
		}
		return t
	case domain.AssetCommodity:
		if mapped, ok := commoditySymbols[t]; ok {
			return mapped
		}
		return t
	}
	return t
}
