package domain

import (
	"fmt"
	"strings"
)

// AssetClass is the closed set of tradable asset classes. Price lookup,
// fee calculation and ticker mapping all dispatch on it exhaustively.
type AssetClass string

const (
	AssetStock     AssetClass = "stock"
	AssetCrypto    AssetClass = "crypto"
	AssetBond      AssetClass = "bond"
	AssetCommodity AssetClass = "commodity"
)

// AssetClasses lists every valid asset class, in allocation-report order.
func AssetClasses() []AssetClass {
	return []AssetClass{AssetStock, AssetCrypto, AssetBond, AssetCommodity}
}

// IsValid checks if the asset class is one of the closed variants.
func (a AssetClass) IsValid() bool {
	switch a {
	case AssetStock, AssetCrypto, AssetBond, AssetCommodity:
		return true
	}
	return false
}

// AssetClassFromString parses an asset class name (case-insensitive).
func AssetClassFromString(value string) (AssetClass, error) {
	ac := AssetClass(strings.ToLower(strings.TrimSpace(value)))
	if !ac.IsValid() {
		return "", fmt.Errorf("invalid asset class: %q", value)
	}
	return ac, nil
}

// OrderSide represents the order direction (BUY or SELL).
type OrderSide string

const (
	OrderBuy  OrderSide = "BUY"
	OrderSell OrderSide = "SELL"
)

// IsValid checks if the order side is valid.
func (s OrderSide) IsValid() bool {
	return s == OrderBuy || s == OrderSell
}

// IsBuy returns true if this is a BUY order.
func (s OrderSide) IsBuy() bool {
	return s == OrderBuy
}

// IsSell returns true if this is a SELL order.
func (s OrderSide) IsSell() bool {
	return s == OrderSell
}

// OrderSideFromString creates an OrderSide from a string (case-insensitive).
func OrderSideFromString(value string) (OrderSide, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "BUY":
		return OrderBuy, nil
	case "SELL":
		return OrderSell, nil
	default:
		return "", fmt.Errorf("invalid order side: %q", value)
	}
}

// PortfolioStatus is the portfolio lifecycle tag.
type PortfolioStatus string

const (
	PortfolioActive   PortfolioStatus = "active"
	PortfolioArchived PortfolioStatus = "archived"
	PortfolioDeleted  PortfolioStatus = "deleted"
)

// IsValid checks if the status is one of the closed variants.
func (s PortfolioStatus) IsValid() bool {
	switch s {
	case PortfolioActive, PortfolioArchived, PortfolioDeleted:
		return true
	}
	return false
}

// FeeScheme is the closed set of fee policy schemes.
type FeeScheme string

const (
	FeeZero    FeeScheme = "zero"
	FeeFlat    FeeScheme = "flat"
	FeePercent FeeScheme = "percent"
	FeeTiered  FeeScheme = "tiered"
)

// IsValid checks if the fee scheme is one of the closed variants.
func (f FeeScheme) IsValid() bool {
	switch f {
	case FeeZero, FeeFlat, FeePercent, FeeTiered:
		return true
	}
	return false
}

// FeeSchemeFromString parses a fee scheme name (case-insensitive).
func FeeSchemeFromString(value string) (FeeScheme, error) {
	fs := FeeScheme(strings.ToLower(strings.TrimSpace(value)))
	if !fs.IsValid() {
		return "", fmt.Errorf("invalid fee scheme: %q", value)
	}
	return fs, nil
}
