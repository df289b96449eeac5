package hyperliquid

import (
	"context"

	"github.com/shopspring/decimal"
)

type infoRequest struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
	// Oid is a venue id (int64) or a "0x" cloid string.
	Oid any `json:"oid,omitempty"`
}

// Meta returns the perpetuals universe.
func (c *Client) Meta(ctx context.Context) (*Meta, error) {
	var meta Meta
	if err := c.post(ctx, infoPath, infoRequest{Type: "meta"}, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// AllMids returns the mid price of every coin.
func (c *Client) AllMids(ctx context.Context) (map[string]decimal.Decimal, error) {
	var mids map[string]decimal.Decimal
	if err := c.post(ctx, infoPath, infoRequest{Type: "allMids"}, &mids); err != nil {
		return nil, err
	}
	return mids, nil
}

// ClearinghouseState returns margin and positions of user.
func (c *Client) ClearinghouseState(ctx context.Context, user string) (*ClearinghouseState, error) {
	var state ClearinghouseState
	if err := c.post(ctx, infoPath, infoRequest{Type: "clearinghouseState", User: user}, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// OpenOrders returns the resting orders of user, trigger orders included.
func (c *Client) OpenOrders(ctx context.Context, user string) ([]OpenOrder, error) {
	var orders []OpenOrder
	if err := c.post(ctx, infoPath, infoRequest{Type: "frontendOpenOrders", User: user}, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// OrderStatus looks up one order by venue id.
func (c *Client) OrderStatus(ctx context.Context, user string, oid int64) (*OrderStatusResponse, error) {
	return c.orderStatus(ctx, user, oid)
}

// OrderStatusByCloid looks up one order by its client order id.
func (c *Client) OrderStatusByCloid(ctx context.Context, user, cloid string) (*OrderStatusResponse, error) {
	return c.orderStatus(ctx, user, cloid)
}

func (c *Client) orderStatus(ctx context.Context, user string, oid any) (*OrderStatusResponse, error) {
	var resp OrderStatusResponse
	if err := c.post(ctx, infoPath, infoRequest{Type: "orderStatus", User: user, Oid: oid}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
