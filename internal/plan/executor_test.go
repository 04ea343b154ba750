package plan

import (
	"context"
	"errors"
	"testing"
	"time"

	"kuber/internal/confirm"
	"kuber/internal/gateway/broker"
	"kuber/internal/instrument"
	"kuber/internal/intent"
	"kuber/internal/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) GetLTP(ctx context.Context, inst instrument.Instrument) (broker.Quote, error) {
	args := m.Called(ctx, inst)
	return args.Get(0).(broker.Quote), args.Error(1)
}

func (m *MockBroker) GetOHLC(ctx context.Context, inst instrument.Instrument, q broker.CandleQuery) ([]broker.Candle, error) {
	args := m.Called(ctx, inst, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]broker.Candle), args.Error(1)
}

func (m *MockBroker) GetHoldings(ctx context.Context) ([]broker.Holding, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]broker.Holding), args.Error(1)
}

func (m *MockBroker) GetPositions(ctx context.Context) ([]broker.Position, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]broker.Position), args.Error(1)
}

func (m *MockBroker) PlaceOrder(ctx context.Context, draft order.Draft) (broker.OrderReceipt, error) {
	args := m.Called(ctx, draft)
	return args.Get(0).(broker.OrderReceipt), args.Error(1)
}

func (m *MockBroker) CancelOrder(ctx context.Context, orderID string) (broker.OrderReceipt, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(broker.OrderReceipt), args.Error(1)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(fragment string) (instrument.Instrument, error) {
	args := m.Called(fragment)
	return args.Get(0).(instrument.Instrument), args.Error(1)
}

type MockInsights struct {
	mock.Mock
}

func (m *MockInsights) AnalyzePortfolio(ctx context.Context, holdings []broker.Holding) (string, error) {
	args := m.Called(ctx, holdings)
	return args.String(0), args.Error(1)
}

func (m *MockInsights) StockInsight(ctx context.Context, inst instrument.Instrument, quote broker.Quote, candles []broker.Candle) (string, error) {
	args := m.Called(ctx, inst, quote, candles)
	return args.String(0), args.Error(1)
}

func (m *MockInsights) MarketMovers(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type MockAudit struct {
	mock.Mock
}

func (m *MockAudit) RecordExecution(ctx context.Context, res order.ExecutionResult) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}

var suzlon = instrument.Instrument{Symbol: "SUZLON-EQ", Token: "12018", Exchange: "NSE", Name: "SUZLON ENERGY"}

func tradeIntent(fields map[string]string) intent.Intent {
	return intent.Intent{Kind: intent.KindPlaceOrder, RawText: "buy", Fields: fields}
}

func newFixture(t *testing.T) (*Executor, *MockResolver, *MockBroker, *MockInsights, *MockAudit, *confirm.Gate) {
	t.Helper()
	resolver := new(MockResolver)
	bk := new(MockBroker)
	insights := new(MockInsights)
	audit := new(MockAudit)
	gate := confirm.NewGate(3 * time.Minute)
	return NewExecutor(resolver, bk, gate, insights, audit), resolver, bk, insights, audit, gate
}

func TestTradePlanPausesAtConfirmation(t *testing.T) {
	exec, resolver, bk, _, _, gate := newFixture(t)
	resolver.On("Resolve", "suzlon").Return(suzlon, nil)

	p, err := Build(tradeIntent(map[string]string{"symbol": "suzlon", "side": "BUY", "quantity": "2"}))
	require.NoError(t, err)

	res, err := exec.Run(context.Background(), "sess-1", p)
	require.NoError(t, err)
	require.True(t, res.NeedsConfirmation)
	assert.NotEmpty(t, res.TokenID)
	assert.Contains(t, res.Text, "BUY 2 x SUZLON-EQ")

	st, err := gate.Status("sess-1", res.TokenID)
	require.NoError(t, err)
	assert.Equal(t, confirm.StatusPending, st)
	bk.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestAmbiguousSymbolHaltsBeforeToken(t *testing.T) {
	exec, resolver, bk, _, _, gate := newFixture(t)
	ambErr := &instrument.AmbiguousError{Fragment: "tata", Candidates: []instrument.Instrument{
		{Symbol: "TATAMOTORS-EQ"}, {Symbol: "TATASTEEL-EQ"},
	}}
	resolver.On("Resolve", "tata").Return(instrument.Instrument{}, ambErr)

	p, err := Build(tradeIntent(map[string]string{"symbol": "tata", "side": "BUY", "quantity": "1"}))
	require.NoError(t, err)

	_, err = exec.Run(context.Background(), "sess-1", p)
	var got *instrument.AmbiguousError
	require.ErrorAs(t, err, &got)
	assert.Len(t, got.Candidates, 2)
	assert.Equal(t, 0, gate.Sweep(time.Now().Add(time.Hour)), "no token should exist")
	bk.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestInvalidQuantityHaltsBeforeToken(t *testing.T) {
	exec, resolver, bk, _, _, gate := newFixture(t)
	resolver.On("Resolve", "suzlon").Return(suzlon, nil)

	p, err := Build(tradeIntent(map[string]string{"symbol": "suzlon", "side": "BUY", "quantity": "0"}))
	require.NoError(t, err)

	_, err = exec.Run(context.Background(), "sess-1", p)
	var verr *order.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "quantity", verr.Field)
	assert.Equal(t, 0, gate.Sweep(time.Now().Add(time.Hour)))
	bk.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestMissingSymbolHalts(t *testing.T) {
	exec, resolver, _, _, _, _ := newFixture(t)
	p, err := Build(tradeIntent(map[string]string{"side": "BUY", "quantity": "1"}))
	require.NoError(t, err)

	_, err = exec.Run(context.Background(), "sess-1", p)
	var verr *order.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "symbol", verr.Field)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything)
}

func TestExecuteConfirmedPlacesOnce(t *testing.T) {
	exec, resolver, bk, _, audit, _ := newFixture(t)
	resolver.On("Resolve", "suzlon").Return(suzlon, nil)
	bk.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(d order.Draft) bool {
		return d.Instrument.Symbol == "SUZLON-EQ" && d.Quantity == 2 && d.Side == order.SideBuy
	})).Return(broker.OrderReceipt{OrderID: "230901000001", Accepted: true}, nil).Once()
	audit.On("RecordExecution", mock.Anything, mock.Anything).Return(nil)

	p, err := Build(tradeIntent(map[string]string{"symbol": "suzlon", "side": "BUY", "quantity": "2"}))
	require.NoError(t, err)
	pause, err := exec.Run(context.Background(), "sess-1", p)
	require.NoError(t, err)

	res, err := exec.ExecuteConfirmed(context.Background(), "sess-1", pause.TokenID)
	require.NoError(t, err)
	assert.Equal(t, order.ExecutionFilled, res.Status)
	assert.Equal(t, "230901000001", res.BrokerOrderID)

	// A second confirm of the same token must fail without another placement.
	_, err = exec.ExecuteConfirmed(context.Background(), "sess-1", pause.TokenID)
	require.ErrorIs(t, err, confirm.ErrAlreadyConsumed)
	bk.AssertNumberOfCalls(t, "PlaceOrder", 1)
	audit.AssertNumberOfCalls(t, "RecordExecution", 1)
}

func TestExpiredTokenNeverReachesBroker(t *testing.T) {
	exec, resolver, bk, _, _, gate := newFixture(t)
	resolver.On("Resolve", "suzlon").Return(suzlon, nil)

	base := time.Now()
	gate.SetClock(func() time.Time { return base })

	p, err := Build(tradeIntent(map[string]string{"symbol": "suzlon", "side": "BUY", "quantity": "2"}))
	require.NoError(t, err)
	pause, err := exec.Run(context.Background(), "sess-1", p)
	require.NoError(t, err)

	gate.SetClock(func() time.Time { return base.Add(4 * time.Minute) })
	_, err = exec.ExecuteConfirmed(context.Background(), "sess-1", pause.TokenID)
	require.ErrorIs(t, err, confirm.ErrExpired)
	bk.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestBrokerRejectionRecordedNotRetried(t *testing.T) {
	exec, resolver, bk, _, audit, gate := newFixture(t)
	resolver.On("Resolve", "suzlon").Return(suzlon, nil)
	bk.On("PlaceOrder", mock.Anything, mock.Anything).
		Return(broker.OrderReceipt{Accepted: false, Message: "Insufficient funds (AB1004)"}, nil).Once()
	var recorded order.ExecutionResult
	audit.On("RecordExecution", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		recorded = args.Get(1).(order.ExecutionResult)
	}).Return(nil)

	p, err := Build(tradeIntent(map[string]string{"symbol": "suzlon", "side": "BUY", "quantity": "500"}))
	require.NoError(t, err)
	pause, err := exec.Run(context.Background(), "sess-1", p)
	require.NoError(t, err)

	res, err := exec.ExecuteConfirmed(context.Background(), "sess-1", pause.TokenID)
	require.NoError(t, err)
	assert.Equal(t, order.ExecutionRejected, res.Status)
	assert.Contains(t, res.Message, "Insufficient funds")
	assert.Equal(t, order.ExecutionRejected, recorded.Status)
	bk.AssertNumberOfCalls(t, "PlaceOrder", 1)

	// The token was consumed; the broker's answer is final for it.
	st, err := gate.Status("sess-1", pause.TokenID)
	require.NoError(t, err)
	assert.Equal(t, confirm.StatusConfirmed, st)
}

func TestPlacementTransportErrorRecorded(t *testing.T) {
	exec, resolver, bk, _, audit, _ := newFixture(t)
	resolver.On("Resolve", "suzlon").Return(suzlon, nil)
	bk.On("PlaceOrder", mock.Anything, mock.Anything).
		Return(broker.OrderReceipt{}, errors.New("connection reset")).Once()
	audit.On("RecordExecution", mock.Anything, mock.Anything).Return(nil)

	p, err := Build(tradeIntent(map[string]string{"symbol": "suzlon", "side": "SELL", "quantity": "1"}))
	require.NoError(t, err)
	pause, err := exec.Run(context.Background(), "sess-1", p)
	require.NoError(t, err)

	res, err := exec.ExecuteConfirmed(context.Background(), "sess-1", pause.TokenID)
	require.NoError(t, err)
	assert.Equal(t, order.ExecutionError, res.Status)
	assert.Contains(t, res.Message, "connection reset")
	bk.AssertNumberOfCalls(t, "PlaceOrder", 1)
	audit.AssertNumberOfCalls(t, "RecordExecution", 1)
}

func TestStockInfoPlanDegradesWithoutCandles(t *testing.T) {
	exec, resolver, bk, insights, _, _ := newFixture(t)
	resolver.On("Resolve", "suzlon").Return(suzlon, nil)
	bk.On("GetLTP", mock.Anything, suzlon).Return(broker.Quote{Symbol: "SUZLON-EQ", LTP: 54.3}, nil)
	bk.On("GetOHLC", mock.Anything, suzlon, mock.Anything).Return(nil, errors.New("candle feed down"))
	insights.On("StockInsight", mock.Anything, suzlon, mock.Anything, []broker.Candle(nil)).
		Return("SUZLON-EQ last traded at 54.30.", nil)

	p, err := Build(intent.Intent{Kind: intent.KindStockInfo, Fields: map[string]string{"symbol": "suzlon"}})
	require.NoError(t, err)
	res, err := exec.Run(context.Background(), "sess-1", p)
	require.NoError(t, err)
	assert.False(t, res.NeedsConfirmation)
	assert.Contains(t, res.Text, "54.30")
}

func TestPortfolioPlan(t *testing.T) {
	exec, _, bk, insights, _, _ := newFixture(t)
	holdings := []broker.Holding{{Symbol: "INFY-EQ", Quantity: 5}}
	bk.On("GetHoldings", mock.Anything).Return(holdings, nil)
	insights.On("AnalyzePortfolio", mock.Anything, holdings).Return("Concentrated in IT.", nil)

	p, err := Build(intent.Intent{Kind: intent.KindPortfolio})
	require.NoError(t, err)
	res, err := exec.Run(context.Background(), "sess-1", p)
	require.NoError(t, err)
	assert.Equal(t, "Concentrated in IT.", res.Text)
}

func TestMoversPlan(t *testing.T) {
	exec, _, _, insights, _, _ := newFixture(t)
	insights.On("MarketMovers", mock.Anything).Return("Top gainers:\n  1. SUZLON-EQ", nil)

	p, err := Build(intent.Intent{Kind: intent.KindMovers})
	require.NoError(t, err)
	res, err := exec.Run(context.Background(), "sess-1", p)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Top gainers")
}

func TestBuildUnknownIntent(t *testing.T) {
	_, err := Build(intent.Intent{Kind: intent.KindUnknown})
	require.ErrorIs(t, err, ErrUnknownIntent)
}

func TestCancelConfirmation(t *testing.T) {
	exec, resolver, bk, _, _, gate := newFixture(t)
	resolver.On("Resolve", "suzlon").Return(suzlon, nil)

	p, err := Build(tradeIntent(map[string]string{"symbol": "suzlon", "side": "BUY", "quantity": "2"}))
	require.NoError(t, err)
	pause, err := exec.Run(context.Background(), "sess-1", p)
	require.NoError(t, err)

	require.NoError(t, exec.CancelConfirmation("sess-1", pause.TokenID))
	_, err = exec.ExecuteConfirmed(context.Background(), "sess-1", pause.TokenID)
	require.ErrorIs(t, err, confirm.ErrCancelled)

	st, err := gate.Status("sess-1", pause.TokenID)
	require.NoError(t, err)
	assert.Equal(t, confirm.StatusCancelled, st)
	bk.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}
