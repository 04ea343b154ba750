package analysis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"kuber/internal/gateway/broker"
	"kuber/internal/logger"

	"github.com/tidwall/gjson"
)

// MarketMovers fetches the day's top gainers and losers from the configured
// public endpoint and renders them as plain text. The feed is best effort: a
// failed or empty fetch degrades to a notice instead of an error so the chat
// flow never breaks on a flaky upstream.
func (a *Analyzer) MarketMovers(ctx context.Context) (string, error) {
	if a.moversURL == "" {
		return "Market movers are not configured.", nil
	}
	body, err := a.fetchMovers(ctx)
	if err != nil {
		logger.Warnf("market movers fetch failed: %v", err)
		return "Market movers are unavailable right now.", nil
	}
	gainers := parseMovers(gjson.GetBytes(body, "gainers"), a.moversCount)
	losers := parseMovers(gjson.GetBytes(body, "losers"), a.moversCount)
	if len(gainers) == 0 && len(losers) == 0 {
		return "Market movers are unavailable right now.", nil
	}
	var b strings.Builder
	if len(gainers) > 0 {
		b.WriteString("Top gainers:\n")
		writeMovers(&b, gainers)
	}
	if len(losers) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Top losers:\n")
		writeMovers(&b, losers)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (a *Analyzer) fetchMovers(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.moversURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("movers endpoint returned %d", resp.StatusCode)
	}
	return body, nil
}

func parseMovers(list gjson.Result, limit int) []broker.Mover {
	var out []broker.Mover
	list.ForEach(func(_, item gjson.Result) bool {
		symbol := item.Get("symbol").String()
		if symbol == "" {
			return true
		}
		out = append(out, broker.Mover{
			Rank:      len(out) + 1,
			Symbol:    symbol,
			LastPrice: item.Get("last_price").Float(),
			ChangePct: item.Get("change_pct").Float(),
		})
		return len(out) < limit
	})
	return out
}

func writeMovers(b *strings.Builder, movers []broker.Mover) {
	for _, m := range movers {
		fmt.Fprintf(b, "  %d. %s %.2f (%+.2f%%)\n", m.Rank, m.Symbol, m.LastPrice, m.ChangePct)
	}
}
