package analysis

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"kuber/internal/config"
	"kuber/internal/gateway/broker"
	"kuber/internal/instrument"
	"kuber/internal/oracle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Complete(ctx context.Context, req oracle.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func newTestAnalyzer(o oracle.Oracle, cfg config.AnalysisConfig) *Analyzer {
	return NewAnalyzer(o, cfg)
}

func TestAnalyzePortfolioKeepsHoldingOrder(t *testing.T) {
	o := new(MockOracle)
	holdings := []broker.Holding{
		{Symbol: "RELIANCE-EQ", Exchange: "NSE", Quantity: 10},
		{Symbol: "INFY-EQ", Exchange: "NSE", Quantity: 5},
		{Symbol: "SUZLON-EQ", Exchange: "NSE", Quantity: 100},
	}
	// Make the first holding the slowest so completion order differs from
	// holding order.
	o.On("Complete", mock.Anything, mock.MatchedBy(func(req oracle.Request) bool {
		return req.Purpose == "insight" && strings.Contains(req.User, "RELIANCE-EQ")
	})).Run(func(mock.Arguments) { time.Sleep(30 * time.Millisecond) }).Return("steady performer", nil)
	o.On("Complete", mock.Anything, mock.MatchedBy(func(req oracle.Request) bool {
		return req.Purpose == "insight" && strings.Contains(req.User, "INFY-EQ")
	})).Return("stable IT bet", nil)
	o.On("Complete", mock.Anything, mock.MatchedBy(func(req oracle.Request) bool {
		return req.Purpose == "insight" && strings.Contains(req.User, "SUZLON-EQ")
	})).Return("volatile small cap", nil)
	o.On("Complete", mock.Anything, mock.MatchedBy(func(req oracle.Request) bool {
		return req.Purpose == "summary"
	})).Return("Overall a mixed book.", nil)

	a := newTestAnalyzer(o, config.AnalysisConfig{MaxConcurrency: 3})
	out, err := a.AnalyzePortfolio(context.Background(), holdings)
	require.NoError(t, err)

	relIdx := strings.Index(out, "RELIANCE-EQ: steady performer")
	infyIdx := strings.Index(out, "INFY-EQ: stable IT bet")
	suzIdx := strings.Index(out, "SUZLON-EQ: volatile small cap")
	require.True(t, relIdx >= 0 && infyIdx >= 0 && suzIdx >= 0, "all notes present: %s", out)
	assert.Less(t, relIdx, infyIdx)
	assert.Less(t, infyIdx, suzIdx)
	assert.True(t, strings.HasPrefix(out, "Overall a mixed book."))
}

func TestAnalyzePortfolioDegradesFailedItem(t *testing.T) {
	o := new(MockOracle)
	o.On("Complete", mock.Anything, mock.MatchedBy(func(req oracle.Request) bool {
		return req.Purpose == "insight" && strings.Contains(req.User, "INFY-EQ")
	})).Return("", errors.New("upstream timeout"))
	o.On("Complete", mock.Anything, mock.MatchedBy(func(req oracle.Request) bool {
		return req.Purpose == "insight" && strings.Contains(req.User, "RELIANCE-EQ")
	})).Return("steady performer", nil)
	o.On("Complete", mock.Anything, mock.MatchedBy(func(req oracle.Request) bool {
		return req.Purpose == "summary"
	})).Return("One note missing, one healthy.", nil)

	a := newTestAnalyzer(o, config.AnalysisConfig{MaxConcurrency: 2})
	out, err := a.AnalyzePortfolio(context.Background(), []broker.Holding{
		{Symbol: "RELIANCE-EQ", Exchange: "NSE"},
		{Symbol: "INFY-EQ", Exchange: "NSE"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "INFY-EQ: insight unavailable")
	assert.Contains(t, out, "RELIANCE-EQ: steady performer")
}

func TestAnalyzePortfolioSummaryFailureReturnsNotes(t *testing.T) {
	o := new(MockOracle)
	o.On("Complete", mock.Anything, mock.MatchedBy(func(req oracle.Request) bool {
		return req.Purpose == "insight"
	})).Return("fine", nil)
	o.On("Complete", mock.Anything, mock.MatchedBy(func(req oracle.Request) bool {
		return req.Purpose == "summary"
	})).Return("", errors.New("oracle down"))

	a := newTestAnalyzer(o, config.AnalysisConfig{})
	out, err := a.AnalyzePortfolio(context.Background(), []broker.Holding{{Symbol: "INFY-EQ"}})
	require.NoError(t, err)
	assert.Equal(t, "INFY-EQ: fine", out)
}

func TestAnalyzePortfolioEmpty(t *testing.T) {
	o := new(MockOracle)
	a := newTestAnalyzer(o, config.AnalysisConfig{})
	out, err := a.AnalyzePortfolio(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "No holdings found in the portfolio.", out)
	o.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestStockInsightFallsBackToQuote(t *testing.T) {
	o := new(MockOracle)
	o.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("oracle down"))
	a := newTestAnalyzer(o, config.AnalysisConfig{})
	inst := instrument.Instrument{Symbol: "SUZLON-EQ", Exchange: "NSE", Token: "12018"}
	out, err := a.StockInsight(context.Background(), inst, broker.Quote{Symbol: "SUZLON-EQ", LTP: 54.3}, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "SUZLON-EQ")
	assert.Contains(t, out, "54.30")
}

func TestStockInsightIncludesIndicators(t *testing.T) {
	o := new(MockOracle)
	var captured oracle.Request
	o.On("Complete", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(1).(oracle.Request)
	}).Return("Trading above its 20 day average.", nil)

	candles := make([]broker.Candle, 40)
	for i := range candles {
		candles[i] = broker.Candle{Close: 100 + float64(i)}
	}
	a := newTestAnalyzer(o, config.AnalysisConfig{})
	inst := instrument.Instrument{Symbol: "RELIANCE-EQ", Exchange: "NSE"}
	out, err := a.StockInsight(context.Background(), inst, broker.Quote{LTP: 139}, candles)
	require.NoError(t, err)
	assert.Equal(t, "Trading above its 20 day average.", out)
	assert.Contains(t, captured.User, "sma20=")
	assert.Contains(t, captured.User, "rsi14=")
	assert.Contains(t, captured.User, "period_change_pct=")
}

func TestMarketMoversFormatsFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"gainers": [
				{"symbol": "SUZLON-EQ", "last_price": 54.3, "change_pct": 6.2},
				{"symbol": "IDEA-EQ", "last_price": 14.1, "change_pct": 4.8}
			],
			"losers": [
				{"symbol": "YESBANK-EQ", "last_price": 21.7, "change_pct": -3.9}
			]
		}`))
	}))
	defer srv.Close()

	a := newTestAnalyzer(new(MockOracle), config.AnalysisConfig{MoversURL: srv.URL, MoversCount: 5})
	out, err := a.MarketMovers(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out, "Top gainers:")
	assert.Contains(t, out, "1. SUZLON-EQ 54.30 (+6.20%)")
	assert.Contains(t, out, "Top losers:")
	assert.Contains(t, out, "1. YESBANK-EQ 21.70 (-3.90%)")
}

func TestMarketMoversRespectsCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"gainers": [
			{"symbol": "A", "last_price": 1, "change_pct": 1},
			{"symbol": "B", "last_price": 2, "change_pct": 2},
			{"symbol": "C", "last_price": 3, "change_pct": 3}
		]}`))
	}))
	defer srv.Close()

	a := newTestAnalyzer(new(MockOracle), config.AnalysisConfig{MoversURL: srv.URL, MoversCount: 2})
	out, err := a.MarketMovers(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "B")
	assert.NotContains(t, out, "C 3.00")
}

func TestMarketMoversDegradesOnFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := newTestAnalyzer(new(MockOracle), config.AnalysisConfig{MoversURL: srv.URL})
	out, err := a.MarketMovers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Market movers are unavailable right now.", out)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMarketMoversUnconfigured(t *testing.T) {
	a := newTestAnalyzer(new(MockOracle), config.AnalysisConfig{})
	out, err := a.MarketMovers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Market movers are not configured.", out)
}
