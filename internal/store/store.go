// Package store defines the audit persistence contract. Every broker
// execution attempt is written here, whatever its outcome, so the order
// history survives restarts.
package store

import (
	"context"

	"kuber/internal/order"
)

type Store interface {
	// RecordExecution appends one execution attempt to the audit log.
	RecordExecution(ctx context.Context, res order.ExecutionResult) error
	// ListExecutions returns the most recent attempts, newest first.
	ListExecutions(ctx context.Context, limit int) ([]order.ExecutionResult, error)
	// Close closes the underlying connection.
	Close() error
}
