// Package broker defines the neutral types the rest of the system uses to
// talk about the execution venue, keeping callers off any vendor SDK shape.
package broker

import (
	"context"
	"errors"
	"time"

	"kuber/internal/instrument"
	"kuber/internal/order"
)

var ErrNotLoggedIn = errors.New("broker session not established")

// Session is the opaque credential minted by the login flow. The core never
// inspects it beyond passing it back to the adapter.
type Session struct {
	AccessToken  string
	RefreshToken string
	FeedToken    string
}

type Quote struct {
	Symbol   string
	Exchange string
	LTP      float64
	AsOf     time.Time
}

type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

type CandleQuery struct {
	Interval string
	From     time.Time
	To       time.Time
}

type Holding struct {
	Symbol    string
	Exchange  string
	Quantity  int64
	AvgPrice  float64
	LastPrice float64
	PnLPct    float64
}

type Position struct {
	Symbol   string
	Exchange string
	NetQty   int64
	AvgPrice float64
	PnL      float64
}

// OrderReceipt is the broker's answer to one placement or cancellation
// attempt. Accepted=false with a Message is a broker-side rejection, which is
// a normal outcome, not a transport error.
type OrderReceipt struct {
	OrderID  string
	Accepted bool
	Message  string
	Raw      []byte
}

type Mover struct {
	Rank      int
	Symbol    string
	LastPrice float64
	ChangePct float64
}

// Broker is the thin per-operation adapter contract. Reads may be retried by
// the implementation; PlaceOrder and CancelOrder are single-shot.
type Broker interface {
	GetLTP(ctx context.Context, inst instrument.Instrument) (Quote, error)
	GetOHLC(ctx context.Context, inst instrument.Instrument, q CandleQuery) ([]Candle, error)
	GetHoldings(ctx context.Context) ([]Holding, error)
	GetPositions(ctx context.Context) ([]Position, error)
	PlaceOrder(ctx context.Context, draft order.Draft) (OrderReceipt, error)
	CancelOrder(ctx context.Context, orderID string) (OrderReceipt, error)
}
