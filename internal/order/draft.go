// Package order models the fully-specified, not-yet-executed order and its
// shape validation. A draft never reaches the broker except through a
// confirmed token.
package order

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"kuber/internal/instrument"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type Type string

const (
	TypeMarket Type = "MARKET"
	TypeLimit  Type = "LIMIT"
)

// ValidationError halts a trade plan before any confirmation token exists.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid order: %s %s", e.Field, e.Reason)
}

// Draft is the frozen order proposal handed to the confirmation gate.
type Draft struct {
	Instrument instrument.Instrument
	Side       Side
	Quantity   int64
	Type       Type
	LimitPrice decimal.Decimal
	CreatedAt  time.Time
}

// Validate enforces the draft invariants: positive quantity, limit price
// present and positive iff the order type is LIMIT, resolved instrument.
func (d Draft) Validate() error {
	if d.Instrument.Token == "" || d.Instrument.Symbol == "" {
		return &ValidationError{Field: "instrument", Reason: "is not resolved"}
	}
	if d.Side != SideBuy && d.Side != SideSell {
		return &ValidationError{Field: "side", Reason: fmt.Sprintf("%q must be BUY or SELL", d.Side)}
	}
	if d.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	switch d.Type {
	case TypeMarket:
		if !d.LimitPrice.IsZero() {
			return &ValidationError{Field: "limit_price", Reason: "must be absent for market orders"}
		}
	case TypeLimit:
		if d.LimitPrice.LessThanOrEqual(decimal.Zero) {
			return &ValidationError{Field: "limit_price", Reason: "must be positive for limit orders"}
		}
	default:
		return &ValidationError{Field: "order_type", Reason: fmt.Sprintf("%q must be MARKET or LIMIT", d.Type)}
	}
	return nil
}

func (d Draft) Summary() string {
	price := "MKT"
	if d.Type == TypeLimit {
		price = d.LimitPrice.String()
	}
	return fmt.Sprintf("%s %d x %s @ %s", d.Side, d.Quantity, d.Instrument.Display(), price)
}

// ParseDraft builds a draft from the untyped fields the classifier extracted.
// Missing side defaults are not guessed: an absent side is a validation error.
// An absent order type defaults to MARKET, matching broker convention.
func ParseDraft(inst instrument.Instrument, fields map[string]string, now time.Time) (Draft, error) {
	d := Draft{Instrument: inst, Type: TypeMarket, CreatedAt: now}

	side := strings.ToUpper(strings.TrimSpace(fields["side"]))
	switch side {
	case "BUY", "SELL":
		d.Side = Side(side)
	case "":
		return Draft{}, &ValidationError{Field: "side", Reason: "is missing"}
	default:
		return Draft{}, &ValidationError{Field: "side", Reason: fmt.Sprintf("%q must be BUY or SELL", side)}
	}

	qtyRaw := strings.TrimSpace(fields["quantity"])
	if qtyRaw == "" {
		return Draft{}, &ValidationError{Field: "quantity", Reason: "is missing"}
	}
	qty, err := strconv.ParseInt(qtyRaw, 10, 64)
	if err != nil {
		return Draft{}, &ValidationError{Field: "quantity", Reason: fmt.Sprintf("%q is not an integer", qtyRaw)}
	}
	d.Quantity = qty

	if typRaw := strings.ToUpper(strings.TrimSpace(fields["order_type"])); typRaw != "" {
		d.Type = Type(typRaw)
	}
	if priceRaw := strings.TrimSpace(fields["limit_price"]); priceRaw != "" {
		price, err := decimal.NewFromString(priceRaw)
		if err != nil {
			return Draft{}, &ValidationError{Field: "limit_price", Reason: fmt.Sprintf("%q is not a number", priceRaw)}
		}
		d.LimitPrice = price
	}

	if err := d.Validate(); err != nil {
		return Draft{}, err
	}
	return d, nil
}
