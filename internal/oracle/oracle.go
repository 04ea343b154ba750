// Package oracle talks to the language model. The model is an untrusted
// proposer: callers re-validate everything it returns before acting on it.
package oracle

import "context"

// Request carries one prompt pair to the model.
type Request struct {
	// Purpose tags the call in logs and metrics ("classify", "insight", ...).
	Purpose string
	System  string
	User    string
}

// Oracle is the single entry point for model calls.
type Oracle interface {
	Complete(ctx context.Context, req Request) (string, error)
}
