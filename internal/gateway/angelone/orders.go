package angelone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"kuber/internal/gateway/broker"
	"kuber/internal/metrics"
	"kuber/internal/order"
)

const (
	placeOrderPath  = "/rest/secure/angelbroking/order/v1/placeOrder"
	cancelOrderPath = "/rest/secure/angelbroking/order/v1/cancelOrder"
)

type orderPayload struct {
	Variety         string `json:"variety"`
	TradingSymbol   string `json:"tradingsymbol"`
	SymbolToken     string `json:"symboltoken"`
	TransactionType string `json:"transactiontype"`
	Exchange        string `json:"exchange"`
	OrderType       string `json:"ordertype"`
	ProductType     string `json:"producttype"`
	Duration        string `json:"duration"`
	Price           string `json:"price,omitempty"`
	Quantity        string `json:"quantity"`
}

// PlaceOrder sends the confirmed draft to the broker exactly once. Transport
// failures and broker rejections are both final for this attempt: the caller
// records them and never re-sends without a fresh confirmation.
func (c *Client) PlaceOrder(ctx context.Context, draft order.Draft) (broker.OrderReceipt, error) {
	payload := orderPayload{
		Variety:         "NORMAL",
		TradingSymbol:   draft.Instrument.Symbol,
		SymbolToken:     draft.Instrument.Token,
		TransactionType: string(draft.Side),
		Exchange:        draft.Instrument.Exchange,
		OrderType:       string(draft.Type),
		ProductType:     "DELIVERY",
		Duration:        "DAY",
		Quantity:        fmt.Sprintf("%d", draft.Quantity),
	}
	if draft.Type == order.TypeLimit {
		payload.Price = draft.LimitPrice.String()
	}
	env, raw, err := c.do(ctx, http.MethodPost, placeOrderPath, payload, true)
	if err != nil {
		metrics.BrokerCall("place_order", "error")
		return broker.OrderReceipt{Raw: raw}, fmt.Errorf("order placement failed: %w", err)
	}
	if !env.Status {
		metrics.BrokerCall("place_order", "rejected")
		return broker.OrderReceipt{
			Accepted: false,
			Message:  fmt.Sprintf("%s (%s)", env.Message, env.ErrorCode),
			Raw:      raw,
		}, nil
	}
	var data struct {
		OrderID string `json:"orderid"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		metrics.BrokerCall("place_order", "error")
		return broker.OrderReceipt{Raw: raw}, fmt.Errorf("decoding order response failed: %w", err)
	}
	metrics.BrokerCall("place_order", "ok")
	return broker.OrderReceipt{
		OrderID:  data.OrderID,
		Accepted: true,
		Message:  env.Message,
		Raw:      raw,
	}, nil
}

// CancelOrder aborts a previously placed pending order at the broker. Same
// single-attempt contract as PlaceOrder.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (broker.OrderReceipt, error) {
	payload := map[string]string{"variety": "NORMAL", "orderid": orderID}
	env, raw, err := c.do(ctx, http.MethodPost, cancelOrderPath, payload, true)
	if err != nil {
		metrics.BrokerCall("cancel_order", "error")
		return broker.OrderReceipt{Raw: raw}, fmt.Errorf("order cancellation failed: %w", err)
	}
	if !env.Status {
		metrics.BrokerCall("cancel_order", "rejected")
		return broker.OrderReceipt{Accepted: false, Message: env.Message, Raw: raw}, nil
	}
	metrics.BrokerCall("cancel_order", "ok")
	return broker.OrderReceipt{OrderID: orderID, Accepted: true, Message: env.Message, Raw: raw}, nil
}
