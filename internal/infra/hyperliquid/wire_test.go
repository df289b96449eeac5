package hyperliquid

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestToWire(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"50000", "50000"},
		{"50000.10", "50000.1"},
		{"0.00000001", "0.00000001"},
		{"0", "0"},
		{"-0.0", "0"},
		{"1.2300", "1.23"},
	}
	for _, tt := range tests {
		got, err := ToWire(d(tt.in))
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ToWire(d("0.123456789"))
	assert.Error(t, err)
}

func TestRoundPrice(t *testing.T) {
	tests := []struct {
		px         string
		szDecimals int32
		want       string
	}{
		{"52500.123", 5, "52500"},
		{"123456", 3, "123460"},
		{"3150.37", 4, "3150.4"},
		{"1.234567", 1, "1.2346"},
		{"0.0123456", 0, "0.012346"},
		{"0.0123456", 2, "0.0123"},
		{"47500", 5, "47500"},
	}
	for _, tt := range tests {
		got := RoundPrice(d(tt.px), tt.szDecimals)
		assert.True(t, got.Equal(d(tt.want)), "RoundPrice(%s, %d) = %s, want %s", tt.px, tt.szDecimals, got, tt.want)
	}
}

func TestSlippagePrice(t *testing.T) {
	buy := SlippagePrice(d("50000"), true, d("0.05"), 5)
	assert.True(t, buy.Equal(d("52500")), buy.String())

	sell := SlippagePrice(d("50000"), false, d("0.05"), 5)
	assert.True(t, sell.Equal(d("47500")), sell.String())
}

func TestToCloid(t *testing.T) {
	got, err := ToCloid("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	require.NoError(t, err)
	assert.Equal(t, "0x6ba7b8109dad11d180b400c04fd430c8", got)

	got, err = ToCloid("0x0000000000000000000000000000ABCD")
	require.NoError(t, err)
	assert.Equal(t, "0x0000000000000000000000000000abcd", got)

	for _, bad := range []string{"my-order-1", "0x1234", "0xzz000000000000000000000000000000"} {
		_, err := ToCloid(bad)
		assert.Error(t, err, bad)
	}
}

func TestCoinSymbol(t *testing.T) {
	assert.Equal(t, "BTC", CoinFromSymbol("BTC-PERP"))
	assert.Equal(t, "ETH", CoinFromSymbol("eth"))
	assert.Equal(t, "SOL", CoinFromSymbol("SOL-USD"))
	assert.Equal(t, "BTC-PERP", SymbolFromCoin("BTC"))
}
