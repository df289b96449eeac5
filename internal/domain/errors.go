package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies exchange failures.
type Kind int

const (
	KindExchange Kind = iota
	KindConnection
	KindAuthentication
	KindOrder
	KindInsufficientBalance
	KindRateLimit
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection error"
	case KindAuthentication:
		return "authentication error"
	case KindOrder:
		return "order error"
	case KindInsufficientBalance:
		return "insufficient balance"
	case KindRateLimit:
		return "rate limit exceeded"
	default:
		return "exchange error"
	}
}

// Error is the single error type every exchange returns.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Sentinels for errors.Is. Every *Error matches ErrExchange.
var (
	ErrExchange            = &Error{Kind: KindExchange}
	ErrConnection          = &Error{Kind: KindConnection}
	ErrAuthentication      = &Error{Kind: KindAuthentication}
	ErrOrder               = &Error{Kind: KindOrder}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance}
	ErrRateLimit           = &Error{Kind: KindRateLimit}
)

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrExchange:
		return true
	case ErrConnection, ErrAuthentication, ErrOrder, ErrInsufficientBalance, ErrRateLimit:
		return e.Kind == target.(*Error).Kind
	}
	return false
}

// Errorf builds a typed error. A %w verb keeps the cause reachable.
func Errorf(kind Kind, format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	return &Error{Kind: kind, Msg: err.Error(), Err: errors.Unwrap(err)}
}

// KindOf returns the kind of a typed error, or KindExchange for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindExchange
}

// IsRetryable reports whether err is a transient failure class.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch KindOf(err) {
	case KindRateLimit, KindConnection, KindExchange:
		return true
	}
	return false
}

// Wrap converts an arbitrary error into the taxonomy. Typed errors pass
// through untouched. Network failures and an expired or cancelled context
// become connection errors; the context cause stays reachable via errors.Is.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Errorf(KindConnection, "%s: %w", op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Errorf(KindConnection, "%s: %w", op, err)
	}
	return Errorf(KindExchange, "%s: %w", op, err)
}
