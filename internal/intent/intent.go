// Package intent turns a free-text chat turn into a typed intent. The model
// proposes; everything it returns is schema-checked before anything downstream
// sees it.
package intent

import "errors"

type Kind string

const (
	KindPlaceOrder Kind = "place_order"
	KindStockInfo  Kind = "get_stock_info"
	KindPortfolio  Kind = "analyze_portfolio"
	KindMovers     Kind = "market_movers"
	KindUnknown    Kind = "unknown"
)

func (k Kind) Valid() bool {
	switch k {
	case KindPlaceOrder, KindStockInfo, KindPortfolio, KindMovers, KindUnknown:
		return true
	default:
		return false
	}
}

// ErrOracleUnavailable means the model could not be reached at all. This is
// distinct from a malformed answer, which degrades to KindUnknown.
var ErrOracleUnavailable = errors.New("intent oracle unavailable")

// Intent is immutable once produced and lives only for the current turn.
// Field values are untyped strings at this stage; the plan's validation step
// does the typing.
type Intent struct {
	Kind    Kind
	RawText string
	Fields  map[string]string
}

func (i Intent) Field(name string) string {
	return i.Fields[name]
}
