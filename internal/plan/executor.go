package plan

import (
	"context"
	"fmt"
	"time"

	"kuber/internal/confirm"
	"kuber/internal/gateway/broker"
	"kuber/internal/instrument"
	"kuber/internal/logger"
	"kuber/internal/order"
)

// SymbolResolver is the lookup the resolve step uses. Satisfied by
// *instrument.Resolver.
type SymbolResolver interface {
	Resolve(fragment string) (instrument.Instrument, error)
}

// Insights is the analysis surface the read-only plans call into. Satisfied
// by *analysis.Analyzer.
type Insights interface {
	AnalyzePortfolio(ctx context.Context, holdings []broker.Holding) (string, error)
	StockInsight(ctx context.Context, inst instrument.Instrument, quote broker.Quote, candles []broker.Candle) (string, error)
	MarketMovers(ctx context.Context) (string, error)
}

// AuditLog records every execution attempt. Satisfied by store.Store.
type AuditLog interface {
	RecordExecution(ctx context.Context, res order.ExecutionResult) error
}

const ohlcWindow = 60 * 24 * time.Hour

type Executor struct {
	resolver SymbolResolver
	broker   broker.Broker
	gate     *confirm.Gate
	insights Insights
	audit    AuditLog
	now      func() time.Time
}

func NewExecutor(resolver SymbolResolver, b broker.Broker, gate *confirm.Gate, insights Insights, audit AuditLog) *Executor {
	return &Executor{
		resolver: resolver,
		broker:   b,
		gate:     gate,
		insights: insights,
		audit:    audit,
		now:      time.Now,
	}
}

// SetClock overrides the executor clock for tests.
func (e *Executor) SetClock(now func() time.Time) {
	e.now = now
}

// runState carries step outputs forward within one plan. Later steps depend
// on earlier results, so steps never run out of order.
type runState struct {
	inst     instrument.Instrument
	draft    order.Draft
	quote    broker.Quote
	candles  []broker.Candle
	holdings []broker.Holding
	text     string
}

// Run executes the plan's steps strictly in order. The first step error halts
// the remainder: a failed validation can never be followed by a confirmation,
// and no step here ever places an order. Trade plans return early at the
// confirmation step with the issued token.
func (e *Executor) Run(ctx context.Context, sessionID string, p *Plan) (*Result, error) {
	st := &runState{}
	for _, step := range p.Steps {
		switch step.Kind {
		case StepResolveSymbol:
			fragment := p.Intent.Field("symbol")
			if fragment == "" {
				return nil, &order.ValidationError{Field: "symbol", Reason: "is missing from the request"}
			}
			inst, err := e.resolver.Resolve(fragment)
			if err != nil {
				return nil, err
			}
			st.inst = inst

		case StepValidateOrder:
			draft, err := order.ParseDraft(st.inst, p.Intent.Fields, e.now())
			if err != nil {
				return nil, err
			}
			st.draft = draft

		case StepIssueConfirmation:
			tok := e.gate.Issue(sessionID, st.draft)
			logger.Infof("plan: session %s draft %q awaiting confirmation (token %s)",
				sessionID, st.draft.Summary(), tok.ID)
			return &Result{
				NeedsConfirmation: true,
				TokenID:           tok.ID,
				ExpiresAt:         tok.ExpiresAt,
				Text:              st.draft.Summary(),
			}, nil

		case StepFetchQuote:
			quote, err := e.broker.GetLTP(ctx, st.inst)
			if err != nil {
				return nil, fmt.Errorf("quote for %s: %w", st.inst.Symbol, err)
			}
			st.quote = quote

		case StepFetchOHLC:
			to := e.now()
			candles, err := e.broker.GetOHLC(ctx, st.inst, broker.CandleQuery{
				Interval: "ONE_DAY",
				From:     to.Add(-ohlcWindow),
				To:       to,
			})
			if err != nil {
				// Insight degrades to the quote alone.
				logger.Warnf("plan: ohlc for %s unavailable: %v", st.inst.Symbol, err)
				candles = nil
			}
			st.candles = candles

		case StepGenerateInsight:
			text, err := e.insights.StockInsight(ctx, st.inst, st.quote, st.candles)
			if err != nil {
				return nil, err
			}
			st.text = text

		case StepFetchHoldings:
			holdings, err := e.broker.GetHoldings(ctx)
			if err != nil {
				return nil, fmt.Errorf("holdings: %w", err)
			}
			st.holdings = holdings

		case StepAnalyzeHoldings:
			text, err := e.insights.AnalyzePortfolio(ctx, st.holdings)
			if err != nil {
				return nil, err
			}
			st.text = text

		case StepFetchMovers:
			text, err := e.insights.MarketMovers(ctx)
			if err != nil {
				return nil, err
			}
			st.text = text

		default:
			return nil, fmt.Errorf("unhandled plan step %q", step.Kind)
		}
	}
	return &Result{Text: st.text}, nil
}

// ExecuteConfirmed redeems a token and places the frozen draft with the
// broker, exactly once. Gate errors (expired, consumed, cancelled, unknown)
// return before any broker traffic. Every broker outcome, including transport
// failure, is captured as an ExecutionResult and recorded for audit; the
// placement call itself is never retried.
func (e *Executor) ExecuteConfirmed(ctx context.Context, sessionID, tokenID string) (*order.ExecutionResult, error) {
	draft, err := e.gate.Confirm(sessionID, tokenID)
	if err != nil {
		return nil, err
	}

	res := &order.ExecutionResult{
		TokenID:   tokenID,
		SessionID: sessionID,
		Draft:     draft,
		CreatedAt: e.now(),
	}
	receipt, err := e.broker.PlaceOrder(ctx, draft)
	switch {
	case err != nil:
		res.Status = order.ExecutionError
		res.Message = err.Error()
		logger.Errorf("execute: session %s token %s placement failed: %v", sessionID, tokenID, err)
	case !receipt.Accepted:
		res.Status = order.ExecutionRejected
		res.Message = receipt.Message
		res.RawResponse = receipt.Raw
		logger.Warnf("execute: session %s token %s rejected by broker: %s", sessionID, tokenID, receipt.Message)
	default:
		res.Status = order.ExecutionFilled
		res.BrokerOrderID = receipt.OrderID
		res.Message = receipt.Message
		res.RawResponse = receipt.Raw
		logger.Infof("execute: session %s token %s placed as broker order %s", sessionID, tokenID, receipt.OrderID)
	}

	if e.audit != nil {
		if err := e.audit.RecordExecution(ctx, *res); err != nil {
			logger.Errorf("execute: audit record for token %s failed: %v", tokenID, err)
		}
	}
	return res, nil
}

// CancelConfirmation withdraws a pending token before it is confirmed.
func (e *Executor) CancelConfirmation(sessionID, tokenID string) error {
	return e.gate.Cancel(sessionID, tokenID)
}
