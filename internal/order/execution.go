package order

import "time"

type ExecutionStatus string

const (
	ExecutionFilled   ExecutionStatus = "filled"
	ExecutionRejected ExecutionStatus = "rejected"
	ExecutionError    ExecutionStatus = "error"
)

// ExecutionResult is the immutable audit record of one broker attempt.
// It exists only as a consequence of a confirmed token.
type ExecutionResult struct {
	TokenID       string
	SessionID     string
	Draft         Draft
	BrokerOrderID string
	Status        ExecutionStatus
	Message       string
	RawResponse   []byte
	CreatedAt     time.Time
}
