package hyperliquid

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sides as reported by the venue.
const (
	SideBid = "B"
	SideAsk = "A"
)

// Venue time-in-force strings.
const (
	TifGtc = "Gtc"
	TifIoc = "Ioc"
)

// Trigger kinds.
const (
	TpslStopLoss   = "sl"
	TpslTakeProfit = "tp"
)

// AssetInfo is one entry of the perpetuals universe. Its index is the
// asset id used on the wire.
type AssetInfo struct {
	Name         string `json:"name"`
	SzDecimals   int32  `json:"szDecimals"`
	MaxLeverage  int    `json:"maxLeverage"`
	OnlyIsolated bool   `json:"onlyIsolated"`
	IsDelisted   bool   `json:"isDelisted"`
}

// Meta is the response of the "meta" info request.
type Meta struct {
	Universe []AssetInfo `json:"universe"`
}

// MarginSummary is the account-level margin view.
type MarginSummary struct {
	AccountValue    decimal.Decimal `json:"accountValue"`
	TotalNtlPos     decimal.Decimal `json:"totalNtlPos"`
	TotalRawUsd     decimal.Decimal `json:"totalRawUsd"`
	TotalMarginUsed decimal.Decimal `json:"totalMarginUsed"`
}

// Leverage of one position.
type Leverage struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

// PositionData is a perpetual position. Szi is signed: negative is short.
type PositionData struct {
	Coin          string          `json:"coin"`
	Szi           decimal.Decimal `json:"szi"`
	EntryPx       decimal.Decimal `json:"entryPx"`
	PositionValue decimal.Decimal `json:"positionValue"`
	UnrealizedPnl decimal.Decimal `json:"unrealizedPnl"`
	MarginUsed    decimal.Decimal `json:"marginUsed"`
	Leverage      Leverage        `json:"leverage"`
}

// AssetPosition wraps PositionData.
type AssetPosition struct {
	Type     string       `json:"type"`
	Position PositionData `json:"position"`
}

// ClearinghouseState is the perpetuals account state of a user.
type ClearinghouseState struct {
	MarginSummary  MarginSummary   `json:"marginSummary"`
	Withdrawable   decimal.Decimal `json:"withdrawable"`
	AssetPositions []AssetPosition `json:"assetPositions"`
	Time           int64           `json:"time"`
}

// OpenOrder is an entry of the "frontendOpenOrders" info request.
type OpenOrder struct {
	Coin             string          `json:"coin"`
	Side             string          `json:"side"`
	LimitPx          decimal.Decimal `json:"limitPx"`
	Sz               decimal.Decimal `json:"sz"`
	OrigSz           decimal.Decimal `json:"origSz"`
	Oid              int64           `json:"oid"`
	Timestamp        int64           `json:"timestamp"`
	OrderType        string          `json:"orderType"`
	IsTrigger        bool            `json:"isTrigger"`
	TriggerPx        decimal.Decimal `json:"triggerPx"`
	TriggerCondition string          `json:"triggerCondition"`
	ReduceOnly       bool            `json:"reduceOnly"`
	Tif              string          `json:"tif"`
	Cloid            string          `json:"cloid"`
}

// OrderStatusResponse is the answer to an "orderStatus" info request.
// Status is "order" when found and "unknownOid" otherwise.
type OrderStatusResponse struct {
	Status string `json:"status"`
	Order  *struct {
		Order           OpenOrder `json:"order"`
		Status          string    `json:"status"`
		StatusTimestamp int64     `json:"statusTimestamp"`
	} `json:"order"`
}

// Order wire format. Field order matters: the msgpack encoding of an action
// is hashed for signing, so tags list fields in the venue's order.
type OrderWire struct {
	Asset      int           `msgpack:"a" json:"a"`
	IsBuy      bool          `msgpack:"b" json:"b"`
	LimitPx    string        `msgpack:"p" json:"p"`
	Size       string        `msgpack:"s" json:"s"`
	ReduceOnly bool          `msgpack:"r" json:"r"`
	OrderType  OrderTypeWire `msgpack:"t" json:"t"`
	Cloid      string        `msgpack:"c,omitempty" json:"c,omitempty"`
}

// OrderTypeWire holds exactly one of Limit or Trigger.
type OrderTypeWire struct {
	Limit   *LimitWire   `msgpack:"limit,omitempty" json:"limit,omitempty"`
	Trigger *TriggerWire `msgpack:"trigger,omitempty" json:"trigger,omitempty"`
}

type LimitWire struct {
	Tif string `msgpack:"tif" json:"tif"`
}

type TriggerWire struct {
	IsMarket  bool   `msgpack:"isMarket" json:"isMarket"`
	TriggerPx string `msgpack:"triggerPx" json:"triggerPx"`
	Tpsl      string `msgpack:"tpsl" json:"tpsl"`
}

// OrderAction places one or more orders.
type OrderAction struct {
	Type     string      `msgpack:"type" json:"type"`
	Orders   []OrderWire `msgpack:"orders" json:"orders"`
	Grouping string      `msgpack:"grouping" json:"grouping"`
}

// CancelWire identifies one order to cancel.
type CancelWire struct {
	Asset int   `msgpack:"a" json:"a"`
	Oid   int64 `msgpack:"o" json:"o"`
}

// CancelAction cancels orders by venue id.
type CancelAction struct {
	Type    string       `msgpack:"type" json:"type"`
	Cancels []CancelWire `msgpack:"cancels" json:"cancels"`
}

// CancelByCloidWire identifies one order to cancel by client order id.
type CancelByCloidWire struct {
	Asset int    `msgpack:"asset" json:"asset"`
	Cloid string `msgpack:"cloid" json:"cloid"`
}

// CancelByCloidAction cancels orders by client order id.
type CancelByCloidAction struct {
	Type    string              `msgpack:"type" json:"type"`
	Cancels []CancelByCloidWire `msgpack:"cancels" json:"cancels"`
}

// Signature of an L1 action.
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V byte   `json:"v"`
}

type exchangeRequest struct {
	Action       any       `json:"action"`
	Nonce        int64     `json:"nonce"`
	Signature    Signature `json:"signature"`
	VaultAddress *string   `json:"vaultAddress"`
}

// exchangeResponse is the envelope of every /exchange answer. Response is
// an object when Status is "ok" and an error string otherwise.
type exchangeResponse struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type exchangeData struct {
	Type string `json:"type"`
	Data struct {
		Statuses []StatusEntry `json:"statuses"`
	} `json:"data"`
}

// RestingStatus is an order accepted onto the book.
type RestingStatus struct {
	Oid   int64  `json:"oid"`
	Cloid string `json:"cloid,omitempty"`
}

// FilledStatus is an order that traded on arrival.
type FilledStatus struct {
	TotalSz decimal.Decimal `json:"totalSz"`
	AvgPx   decimal.Decimal `json:"avgPx"`
	Oid     int64           `json:"oid"`
	Cloid   string          `json:"cloid,omitempty"`
}

// StatusEntry is the per-order result of an action. Cancels answer with the
// bare string "success", which sets Success.
type StatusEntry struct {
	Resting *RestingStatus `json:"resting,omitempty"`
	Filled  *FilledStatus  `json:"filled,omitempty"`
	Error   string         `json:"error,omitempty"`
	Success bool           `json:"-"`
}

func (s *StatusEntry) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		switch str {
		case "success", "waitingForFill", "waitingForTrigger":
			s.Success = true
		default:
			s.Error = str
		}
		return nil
	}

	type plain StatusEntry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("unexpected status entry %s: %w", data, err)
	}
	*s = StatusEntry(p)
	return nil
}
