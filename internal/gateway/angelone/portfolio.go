package angelone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"kuber/internal/gateway/broker"
)

const (
	holdingsPath  = "/rest/secure/angelbroking/portfolio/v1/getAllHolding"
	positionsPath = "/rest/secure/angelbroking/order/v1/getPosition"
)

func (c *Client) GetHoldings(ctx context.Context) ([]broker.Holding, error) {
	env, err := c.read(ctx, "holdings", http.MethodGet, holdingsPath, nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Holdings []struct {
			TradingSymbol string  `json:"tradingsymbol"`
			Exchange      string  `json:"exchange"`
			Quantity      int64   `json:"quantity"`
			AvgPrice      float64 `json:"averageprice"`
			LTP           float64 `json:"ltp"`
			PnLPct        float64 `json:"pnlpercentage"`
		} `json:"holdings"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decoding holdings response failed: %w", err)
	}
	out := make([]broker.Holding, 0, len(data.Holdings))
	for _, h := range data.Holdings {
		out = append(out, broker.Holding{
			Symbol:    h.TradingSymbol,
			Exchange:  h.Exchange,
			Quantity:  h.Quantity,
			AvgPrice:  h.AvgPrice,
			LastPrice: h.LTP,
			PnLPct:    h.PnLPct,
		})
	}
	return out, nil
}

func (c *Client) GetPositions(ctx context.Context) ([]broker.Position, error) {
	env, err := c.read(ctx, "positions", http.MethodGet, positionsPath, nil)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		TradingSymbol string  `json:"tradingsymbol"`
		Exchange      string  `json:"exchange"`
		NetQty        int64   `json:"netqty,string"`
		AvgPrice      float64 `json:"avgnetprice,string"`
		PnL           float64 `json:"pnl,string"`
	}
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, fmt.Errorf("decoding positions response failed: %w", err)
	}
	out := make([]broker.Position, 0, len(rows))
	for _, p := range rows {
		out = append(out, broker.Position{
			Symbol:   p.TradingSymbol,
			Exchange: p.Exchange,
			NetQty:   p.NetQty,
			AvgPrice: p.AvgPrice,
			PnL:      p.PnL,
		})
	}
	return out, nil
}
