package domain

import "github.com/shopspring/decimal"

// Market holds static venue metadata for one symbol.
// The limits are informational; orders are not rejected against them.
type Market struct {
	Symbol            string          `json:"symbol"`
	BaseAsset         string          `json:"base_asset"`
	QuoteAsset        string          `json:"quote_asset"`
	MinQuantity       decimal.Decimal `json:"min_quantity"`
	MaxQuantity       decimal.Decimal `json:"max_quantity"`
	QuantityPrecision int32           `json:"quantity_precision"`
	PricePrecision    int32           `json:"price_precision"`
	TickSize          decimal.Decimal `json:"tick_size"`
	LotSize           decimal.Decimal `json:"lot_size"`
	MaxLeverage       int             `json:"max_leverage"`
	Active            bool            `json:"active"`
}

// FindMarket returns the market for symbol, or nil.
func FindMarket(markets []Market, symbol string) *Market {
	for i := range markets {
		if markets[i].Symbol == symbol {
			m := markets[i]
			return &m
		}
	}
	return nil
}
