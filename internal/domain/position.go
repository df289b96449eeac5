package domain

import "github.com/shopspring/decimal"

// PositionSide is the direction of open exposure.
type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

// Epsilon is the size under which exposure counts as flat.
var Epsilon = decimal.New(1, -7)

// IsFlat reports whether a signed size is numerically zero.
func IsFlat(size decimal.Decimal) bool {
	return size.Abs().LessThan(Epsilon)
}

// Position represents open exposure on one symbol.
// Quantity is always positive; a flat position is never stored.
type Position struct {
	Symbol        string          `json:"symbol"`
	Side          PositionSide    `json:"side"`
	Quantity      decimal.Decimal `json:"quantity"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	MarkPrice     decimal.Decimal `json:"mark_price"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	Leverage      decimal.Decimal `json:"leverage"`
	Margin        decimal.Decimal `json:"margin"`
}

// IsLong checks if the position is Long.
func (p Position) IsLong() bool {
	return p.Side == PositionLong
}

// IsShort checks if the position is Short.
func (p Position) IsShort() bool {
	return p.Side == PositionShort
}

// SignedQuantity is positive for long and negative for short.
func (p Position) SignedQuantity() decimal.Decimal {
	if p.IsShort() {
		return p.Quantity.Neg()
	}
	return p.Quantity
}

// PnLAt is the profit of the whole position if it were closed at price.
func (p Position) PnLAt(price decimal.Decimal) decimal.Decimal {
	return p.PnLOn(price, p.Quantity)
}

// PnLOn is the profit of closing size units at price.
func (p Position) PnLOn(price, size decimal.Decimal) decimal.Decimal {
	diff := price.Sub(p.EntryPrice)
	if p.IsShort() {
		diff = diff.Neg()
	}
	return diff.Mul(size)
}

// Mark sets the mark price and recomputes unrealized P&L.
func (p *Position) Mark(price decimal.Decimal) {
	if !price.IsPositive() {
		return
	}
	p.MarkPrice = price
	p.UnrealizedPnL = p.PnLAt(price)
}

// Notional is quantity times entry price.
func (p Position) Notional() decimal.Decimal {
	return p.Quantity.Mul(p.EntryPrice)
}

// SideFor returns the position side that a signed size represents.
func SideFor(size decimal.Decimal) PositionSide {
	if size.IsNegative() {
		return PositionShort
	}
	return PositionLong
}

// ClosingSide returns the order side that reduces the position.
func (p Position) ClosingSide() OrderSide {
	if p.IsShort() {
		return SideBuy
	}
	return SideSell
}
