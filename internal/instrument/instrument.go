// Package instrument resolves free-text security references against the
// broker's instrument master. The master is read-only at runtime; a refreshed
// copy dropped in place by the downloader is picked up via file watch.
package instrument

import (
	"errors"
	"fmt"
	"strings"
)

// Instrument is one row of the instrument master. Token is the broker's
// canonical identifier for the security on its exchange segment.
type Instrument struct {
	Symbol   string `json:"tradingsymbol"`
	Token    string `json:"symboltoken"`
	Exchange string `json:"exchange"`
	Name     string `json:"name"`
	LotSize  int    `json:"lotsize"`
}

func (i Instrument) Display() string {
	return fmt.Sprintf("%s (%s)", i.Symbol, i.Exchange)
}

// ErrNotFound means no candidate cleared the similarity threshold.
var ErrNotFound = errors.New("instrument not found")

// AmbiguousError carries all candidates that tied at the top score. Callers
// must re-prompt the user, never pick one.
type AmbiguousError struct {
	Fragment   string
	Candidates []Instrument
}

func (e *AmbiguousError) Error() string {
	names := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		names = append(names, c.Symbol)
	}
	return fmt.Sprintf("%q matches multiple instruments: %s", e.Fragment, strings.Join(names, ", "))
}
