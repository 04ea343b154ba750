// Package analysis produces read-only narratives: per-holding portfolio
// review, single-stock insight, and market movers. Nothing here can place an
// order, so no confirmation gate is involved.
package analysis

import (
	"net/http"
	"time"

	"kuber/internal/config"
	"kuber/internal/oracle"
)

type Analyzer struct {
	oracle         oracle.Oracle
	maxConcurrency int
	moversURL      string
	moversCount    int
	httpClient     *http.Client
}

func NewAnalyzer(o oracle.Oracle, cfg config.AnalysisConfig) *Analyzer {
	limit := cfg.MaxConcurrency
	if limit <= 0 {
		limit = 4
	}
	count := cfg.MoversCount
	if count <= 0 {
		count = 5
	}
	return &Analyzer{
		oracle:         o,
		maxConcurrency: limit,
		moversURL:      cfg.MoversURL,
		moversCount:    count,
		httpClient:     &http.Client{Timeout: 20 * time.Second},
	}
}

// SetHTTPClient sets the movers HTTP client for testing.
func (a *Analyzer) SetHTTPClient(client *http.Client) {
	a.httpClient = client
}
