package analysis

import (
	"context"
	"fmt"
	"strings"

	"kuber/internal/gateway/broker"
	"kuber/internal/instrument"
	"kuber/internal/oracle"

	"github.com/markcheno/go-talib"
)

const stockInsightPrompt = `You are a cautious equity analyst for Indian markets.
Given a quote and indicator context, describe what is happening with the stock
in three to five plain sentences. Mention the last traded price. Do not give
buy/sell advice and do not promise returns.`

const (
	smaPeriod = 20
	rsiPeriod = 14
)

// StockInsight narrates one instrument from its quote and recent daily
// candles. Indicator context is computed locally; the oracle only phrases it.
func (a *Analyzer) StockInsight(ctx context.Context, inst instrument.Instrument, quote broker.Quote, candles []broker.Candle) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "instrument=%s exchange=%s ltp=%.2f\n", inst.Symbol, inst.Exchange, quote.LTP)
	if ind := indicatorContext(candles); ind != "" {
		b.WriteString(ind)
	}
	text, err := a.oracle.Complete(ctx, oracle.Request{
		Purpose: "insight",
		System:  stockInsightPrompt,
		User:    b.String(),
	})
	if err != nil {
		// The quote itself is still worth returning.
		return fmt.Sprintf("%s (%s) last traded at %.2f.", inst.Symbol, inst.Exchange, quote.LTP), nil
	}
	return strings.TrimSpace(text), nil
}

func indicatorContext(candles []broker.Candle) string {
	if len(candles) == 0 {
		return ""
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	first, last := candles[0], candles[len(candles)-1]
	var b strings.Builder
	fmt.Fprintf(&b, "range_days=%d first_close=%.2f last_close=%.2f\n", len(candles), first.Close, last.Close)
	if first.Close > 0 {
		fmt.Fprintf(&b, "period_change_pct=%.2f\n", (last.Close-first.Close)/first.Close*100)
	}
	if len(closes) > smaPeriod {
		sma := talib.Sma(closes, smaPeriod)
		fmt.Fprintf(&b, "sma%d=%.2f\n", smaPeriod, sma[len(sma)-1])
	}
	if len(closes) > rsiPeriod {
		rsi := talib.Rsi(closes, rsiPeriod)
		fmt.Fprintf(&b, "rsi%d=%.1f\n", rsiPeriod, rsi[len(rsi)-1])
	}
	return b.String()
}
