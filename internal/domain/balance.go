package domain

import "github.com/shopspring/decimal"

// Balance is the account state for one currency.
// Total = Available + Locked. UnrealizedPnL is reported separately so that
// Total + UnrealizedPnL is the mark-to-market account value.
type Balance struct {
	Currency      string          `json:"currency"`
	Total         decimal.Decimal `json:"total"`
	Available     decimal.Decimal `json:"available"`
	Locked        decimal.Decimal `json:"locked"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

// Equity is the mark-to-market account value.
func (b Balance) Equity() decimal.Decimal {
	return b.Total.Add(b.UnrealizedPnL)
}

// CanAfford reports whether the free funds cover amount.
func (b Balance) CanAfford(amount decimal.Decimal) bool {
	return b.Available.GreaterThanOrEqual(amount)
}

// FilterBalances keeps balances of one currency. An empty currency keeps all.
func FilterBalances(balances []Balance, currency string) []Balance {
	if currency == "" {
		return balances
	}
	out := make([]Balance, 0, 1)
	for _, b := range balances {
		if b.Currency == currency {
			out = append(out, b)
		}
	}
	return out
}
