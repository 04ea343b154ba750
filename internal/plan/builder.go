package plan

import (
	"errors"
	"fmt"

	"kuber/internal/intent"
)

// ErrUnknownIntent marks a turn the classifier could not map to an operation.
// Callers answer it by asking the user to rephrase; it never reaches the
// broker.
var ErrUnknownIntent = errors.New("intent not understood")

// Build assembles the step sequence for one intent. Trade plans stop at the
// confirmation step; execution only happens through a later confirm action.
func Build(it intent.Intent) (*Plan, error) {
	switch it.Kind {
	case intent.KindPlaceOrder:
		return &Plan{Intent: it, Steps: steps(
			StepResolveSymbol, StepValidateOrder, StepIssueConfirmation,
		)}, nil
	case intent.KindStockInfo:
		return &Plan{Intent: it, Steps: steps(
			StepResolveSymbol, StepFetchQuote, StepFetchOHLC, StepGenerateInsight,
		)}, nil
	case intent.KindPortfolio:
		return &Plan{Intent: it, Steps: steps(
			StepFetchHoldings, StepAnalyzeHoldings,
		)}, nil
	case intent.KindMovers:
		return &Plan{Intent: it, Steps: steps(StepFetchMovers)}, nil
	case intent.KindUnknown:
		return nil, ErrUnknownIntent
	default:
		return nil, fmt.Errorf("no plan for intent kind %q", it.Kind)
	}
}

func steps(kinds ...StepKind) []Step {
	out := make([]Step, len(kinds))
	for i, k := range kinds {
		out[i] = Step{Kind: k}
	}
	return out
}
