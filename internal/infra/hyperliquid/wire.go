package hyperliquid

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// Prices carry at most this many significant figures.
	priceSigFigs = 5
	// Perpetual prices carry at most maxPerpDecimals - szDecimals decimals.
	maxPerpDecimals = 6
	wireDecimals    = 8
)

// ToWire renders a price or size the way the venue hashes it: at most eight
// decimals, no trailing zeros. Values needing more precision are rejected
// rather than silently rounded.
func ToWire(d decimal.Decimal) (string, error) {
	rounded := d.Round(wireDecimals)
	if !rounded.Equal(d) {
		return "", fmt.Errorf("%s has more than %d decimals", d, wireDecimals)
	}
	if rounded.IsZero() {
		return "0", nil
	}
	return rounded.String(), nil
}

// RoundPrice limits px to five significant figures and to the decimals the
// asset allows. Only used for prices the adapter derives itself.
func RoundPrice(px decimal.Decimal, szDecimals int32) decimal.Decimal {
	if !px.IsPositive() {
		return px
	}
	magnitude := int32(px.NumDigits()) + px.Exponent() - 1 // floor(log10(px))
	px = px.Round(priceSigFigs - 1 - magnitude)

	maxDecimals := maxPerpDecimals - szDecimals
	if maxDecimals < 0 {
		maxDecimals = 0
	}
	return px.Round(maxDecimals)
}

// SlippagePrice returns an aggressive limit price for a market order:
// mid moved against the taker by slippage (a fraction), then rounded.
func SlippagePrice(mid decimal.Decimal, isBuy bool, slippage decimal.Decimal, szDecimals int32) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(slippage)
	if !isBuy {
		factor = decimal.NewFromInt(1).Sub(slippage)
	}
	return RoundPrice(mid.Mul(factor), szDecimals)
}

// ToCloid converts a client order id to a 128-bit venue cloid. A UUID is
// accepted as is, as is an already formatted "0x" + 32 hex digit id.
func ToCloid(clientID string) (string, error) {
	if strings.HasPrefix(clientID, "0x") {
		raw := clientID[2:]
		if len(raw) == 32 {
			if _, err := hex.DecodeString(raw); err == nil {
				return strings.ToLower(clientID), nil
			}
		}
		return "", fmt.Errorf("cloid %q must be 0x followed by 32 hex digits", clientID)
	}

	id, err := uuid.Parse(clientID)
	if err != nil {
		return "", fmt.Errorf("client order id %q is neither a UUID nor a cloid", clientID)
	}
	return "0x" + hex.EncodeToString(id[:]), nil
}

// CoinFromSymbol strips the perpetual suffix: "BTC-PERP" → "BTC".
func CoinFromSymbol(symbol string) string {
	coin := strings.ToUpper(symbol)
	for _, suffix := range []string{"-PERP", "-USD", "/USD", "-USDC"} {
		coin = strings.TrimSuffix(coin, suffix)
	}
	return coin
}

// SymbolFromCoin is the inverse of CoinFromSymbol.
func SymbolFromCoin(coin string) string {
	return coin + "-PERP"
}
