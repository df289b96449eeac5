package hyperliquid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrRejected wraps an "err" envelope from /exchange.
var ErrRejected = errors.New("hyperliquid: action rejected")

// Exchange sends signed actions through a Client.
type Exchange struct {
	client *Client
	signer *Signer
	now    func() time.Time
}

// NewExchange binds a signer to a client.
func NewExchange(client *Client, signer *Signer) *Exchange {
	return &Exchange{client: client, signer: signer, now: time.Now}
}

// PlaceOrders submits orders in one action. Statuses are returned in order.
func (e *Exchange) PlaceOrders(ctx context.Context, orders []OrderWire) ([]StatusEntry, error) {
	action := OrderAction{Type: "order", Orders: orders, Grouping: "na"}
	return e.send(ctx, action)
}

// Cancel cancels one order by venue id.
func (e *Exchange) Cancel(ctx context.Context, asset int, oid int64) (StatusEntry, error) {
	action := CancelAction{Type: "cancel", Cancels: []CancelWire{{Asset: asset, Oid: oid}}}
	return e.sendOne(ctx, action, strconv.FormatInt(oid, 10))
}

// CancelByCloid cancels one order by client order id.
func (e *Exchange) CancelByCloid(ctx context.Context, asset int, cloid string) (StatusEntry, error) {
	action := CancelByCloidAction{Type: "cancelByCloid", Cancels: []CancelByCloidWire{{Asset: asset, Cloid: cloid}}}
	return e.sendOne(ctx, action, cloid)
}

func (e *Exchange) sendOne(ctx context.Context, action any, id string) (StatusEntry, error) {
	statuses, err := e.send(ctx, action)
	if err != nil {
		return StatusEntry{}, err
	}
	if len(statuses) == 0 {
		return StatusEntry{}, fmt.Errorf("cancel %s: empty response", id)
	}
	return statuses[0], nil
}

func (e *Exchange) send(ctx context.Context, action any) ([]StatusEntry, error) {
	// Millisecond timestamps double as nonces.
	nonce := e.now().UnixMilli()
	sig, err := e.signer.SignL1Action(action, nonce, e.client.IsMainnet())
	if err != nil {
		return nil, err
	}

	var resp exchangeResponse
	req := exchangeRequest{Action: action, Nonce: nonce, Signature: sig}
	if err := e.client.post(ctx, exchangePath, req, &resp); err != nil {
		return nil, err
	}

	if resp.Status != "ok" {
		var msg string
		if err := json.Unmarshal(resp.Response, &msg); err != nil {
			msg = string(resp.Response)
		}
		return nil, fmt.Errorf("%w: %s", ErrRejected, msg)
	}

	var data exchangeData
	if err := json.Unmarshal(resp.Response, &data); err != nil {
		return nil, fmt.Errorf("decode exchange response: %w", err)
	}
	return data.Data.Statuses, nil
}
