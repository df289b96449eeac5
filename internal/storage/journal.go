package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Lifecycle event names written to the journal.
const (
	EventConnected    = "CONNECTED"
	EventDisconnected = "DISCONNECTED"
	EventReset        = "RESET"
)

// TradeRecord is one fill as written to the trade log.
// RealizedPnL is the exchange's running total after the fill.
type TradeRecord struct {
	Timestamp    time.Time       `json:"timestamp"`
	OrderID      string          `json:"order_id"`
	Symbol       string          `json:"symbol"`
	Side         string          `json:"side"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	RealizedPnL  decimal.Decimal `json:"realized_pnl"`
}

// EventRecord is a lifecycle line. It shares the trade log file but uses
// an "event" key instead of "order_id".
type EventRecord struct {
	Timestamp time.Time       `json:"timestamp"`
	Event     string          `json:"event"`
	Balance   decimal.Decimal `json:"balance"`
}

// Journal is an append-only sink for trades and lifecycle events.
// Implementations are not safe for concurrent writers.
type Journal interface {
	RecordTrade(ctx context.Context, rec TradeRecord) error
	RecordEvent(ctx context.Context, rec EventRecord) error
	Close() error
}

// Tee fans every record out to all journals. Nil entries are skipped.
func Tee(journals ...Journal) Journal {
	out := make(multiJournal, 0, len(journals))
	for _, j := range journals {
		if j != nil {
			out = append(out, j)
		}
	}
	return out
}

type multiJournal []Journal

func (m multiJournal) RecordTrade(ctx context.Context, rec TradeRecord) error {
	var errs []error
	for _, j := range m {
		if err := j.RecordTrade(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiJournal) RecordEvent(ctx context.Context, rec EventRecord) error {
	var errs []error
	for _, j := range m {
		if err := j.RecordEvent(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiJournal) Close() error {
	var errs []error
	for _, j := range m {
		if err := j.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
