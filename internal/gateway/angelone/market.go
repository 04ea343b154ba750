package angelone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"kuber/internal/gateway/broker"
	"kuber/internal/instrument"
)

const (
	ltpPath    = "/rest/secure/angelbroking/order/v1/getLtpData"
	candlePath = "/rest/secure/angelbroking/historical/v1/getCandleData"
)

const candleTimeLayout = "2006-01-02 15:04"

func (c *Client) GetLTP(ctx context.Context, inst instrument.Instrument) (broker.Quote, error) {
	payload := map[string]string{
		"exchange":      inst.Exchange,
		"tradingsymbol": inst.Symbol,
		"symboltoken":   inst.Token,
	}
	env, err := c.read(ctx, "ltp", http.MethodPost, ltpPath, payload)
	if err != nil {
		return broker.Quote{}, err
	}
	var data struct {
		TradingSymbol string  `json:"tradingsymbol"`
		Exchange      string  `json:"exchange"`
		LTP           float64 `json:"ltp"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return broker.Quote{}, fmt.Errorf("decoding ltp response failed: %w", err)
	}
	return broker.Quote{
		Symbol:   data.TradingSymbol,
		Exchange: data.Exchange,
		LTP:      data.LTP,
		AsOf:     time.Now(),
	}, nil
}

func (c *Client) GetOHLC(ctx context.Context, inst instrument.Instrument, q broker.CandleQuery) ([]broker.Candle, error) {
	interval := q.Interval
	if interval == "" {
		interval = "ONE_DAY"
	}
	payload := map[string]string{
		"exchange":    inst.Exchange,
		"symboltoken": inst.Token,
		"interval":    interval,
		"fromdate":    q.From.Format(candleTimeLayout),
		"todate":      q.To.Format(candleTimeLayout),
	}
	env, err := c.read(ctx, "ohlc", http.MethodPost, candlePath, payload)
	if err != nil {
		return nil, err
	}
	// Candles arrive as heterogeneous arrays: [timestamp, o, h, l, c, volume].
	var rows [][]json.RawMessage
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, fmt.Errorf("decoding candle response failed: %w", err)
	}
	candles := make([]broker.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		var ts string
		if err := json.Unmarshal(row[0], &ts); err != nil {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			continue
		}
		var o, h, l, cl float64
		var vol int64
		if json.Unmarshal(row[1], &o) != nil ||
			json.Unmarshal(row[2], &h) != nil ||
			json.Unmarshal(row[3], &l) != nil ||
			json.Unmarshal(row[4], &cl) != nil ||
			json.Unmarshal(row[5], &vol) != nil {
			continue
		}
		candles = append(candles, broker.Candle{Time: parsed, Open: o, High: h, Low: l, Close: cl, Volume: vol})
	}
	return candles, nil
}
