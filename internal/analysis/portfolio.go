package analysis

import (
	"context"
	"fmt"
	"strings"

	"kuber/internal/gateway/broker"
	"kuber/internal/logger"
	"kuber/internal/oracle"

	"golang.org/x/sync/errgroup"
)

const holdingInsightPrompt = `You are a cautious equity portfolio reviewer for Indian markets.
Given one holding, reply with two short sentences: what stands out, and one risk to watch.
Never recommend order sizes and never promise returns.`

const portfolioSummaryPrompt = `You are a cautious equity portfolio reviewer for Indian markets.
Given per-holding notes, write a short overall summary: strengths first, then risks.
Plain text, at most six sentences, no financial guarantees.`

// AnalyzePortfolio fetches a per-holding insight for each position and folds
// the notes into one summary. Item fetches run with bounded parallelism but
// the aggregation order is always the original holding order. A failed item
// degrades to a placeholder note; only an empty portfolio short-circuits.
func (a *Analyzer) AnalyzePortfolio(ctx context.Context, holdings []broker.Holding) (string, error) {
	if len(holdings) == 0 {
		return "No holdings found in the portfolio.", nil
	}
	insights := make([]string, len(holdings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrency)
	for i, h := range holdings {
		i, h := i, h
		g.Go(func() error {
			text, err := a.oracle.Complete(gctx, oracle.Request{
				Purpose: "insight",
				System:  holdingInsightPrompt,
				User:    describeHolding(h),
			})
			if err != nil {
				logger.Warnf("portfolio insight for %s failed: %v", h.Symbol, err)
				insights[i] = fmt.Sprintf("%s: insight unavailable", h.Symbol)
				return nil
			}
			insights[i] = fmt.Sprintf("%s: %s", h.Symbol, strings.TrimSpace(text))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	notes := strings.Join(insights, "\n")
	summary, err := a.oracle.Complete(ctx, oracle.Request{
		Purpose: "summary",
		System:  portfolioSummaryPrompt,
		User:    notes,
	})
	if err != nil {
		// Degrade to the raw notes rather than losing the whole review.
		logger.Warnf("portfolio summary failed, returning per-holding notes: %v", err)
		return notes, nil
	}
	return strings.TrimSpace(summary) + "\n\n" + notes, nil
}

func describeHolding(h broker.Holding) string {
	return fmt.Sprintf("symbol=%s exchange=%s qty=%d avg_price=%.2f last_price=%.2f pnl_pct=%.2f",
		h.Symbol, h.Exchange, h.Quantity, h.AvgPrice, h.LastPrice, h.PnLPct)
}
