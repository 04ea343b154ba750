// Package plan turns a classified intent into an ordered sequence of typed
// steps and runs them with per-step error containment. The executor here is
// the only code allowed to touch the confirmation gate and the broker
// adapter.
package plan

import (
	"time"

	"kuber/internal/intent"
)

type StepKind string

const (
	StepResolveSymbol     StepKind = "resolve_symbol"
	StepValidateOrder     StepKind = "validate_order"
	StepIssueConfirmation StepKind = "issue_confirmation"
	StepFetchQuote        StepKind = "fetch_quote"
	StepFetchOHLC         StepKind = "fetch_ohlc"
	StepGenerateInsight   StepKind = "generate_insight"
	StepFetchHoldings     StepKind = "fetch_holdings"
	StepAnalyzeHoldings   StepKind = "analyze_holdings"
	StepFetchMovers       StepKind = "fetch_movers"
)

type Step struct {
	Kind StepKind
}

// Plan is the ordered step list for one user turn. It is built once from the
// intent and never mutated while running.
type Plan struct {
	Intent intent.Intent
	Steps  []Step
}

// Result is what a completed (or paused) plan hands back to the caller. A
// trade plan pauses at the confirmation step: NeedsConfirmation carries the
// token the user must echo back, and Text holds the draft summary.
type Result struct {
	NeedsConfirmation bool
	TokenID           string
	ExpiresAt         time.Time
	Text              string
}
