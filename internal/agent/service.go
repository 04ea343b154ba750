// Package agent glues the pipeline together per chat turn: classify the text,
// build a plan, run it, and shape the outcome for the transport layer. Error
// taxonomy collapses to user-facing guidance here; nothing below this layer
// talks to the user.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kuber/internal/confirm"
	"kuber/internal/instrument"
	"kuber/internal/intent"
	"kuber/internal/logger"
	"kuber/internal/order"
	"kuber/internal/plan"
	"kuber/internal/store"
)

// Classifier is the language step of the pipeline. Satisfied by
// *intent.Classifier.
type Classifier interface {
	Classify(ctx context.Context, rawText string) (intent.Intent, error)
}

type ReplyKind string

const (
	ReplyAnswer            ReplyKind = "answer"
	ReplyNeedsConfirmation ReplyKind = "needs_confirmation"
	ReplyError             ReplyKind = "error"
)

// Reply is one turn's outcome. ErrorKind is set only for ReplyError and names
// the taxonomy bucket so clients can branch without parsing Text.
type Reply struct {
	Kind      ReplyKind
	Text      string
	TokenID   string
	ExpiresAt time.Time
	ErrorKind string
}

type Service struct {
	classifier Classifier
	executor   *plan.Executor
	audit      store.Store
}

func NewService(classifier Classifier, executor *plan.Executor, audit store.Store) *Service {
	return &Service{classifier: classifier, executor: executor, audit: audit}
}

const rephraseText = "I couldn't understand that request. Try something like " +
	`"Buy 2 shares of Suzlon" or "How is my portfolio doing?".`

// HandleChat runs one user turn end to end. Errors from the pipeline are
// shaped into replies; the returned error is reserved for internal faults the
// user cannot act on.
func (s *Service) HandleChat(ctx context.Context, sessionID, text string) (*Reply, error) {
	it, err := s.classifier.Classify(ctx, text)
	if err != nil {
		if errors.Is(err, intent.ErrOracleUnavailable) {
			logger.Warnf("agent: classification unavailable for session %s: %v", sessionID, err)
			return &Reply{
				Kind:      ReplyError,
				ErrorKind: "classification_unavailable",
				Text:      "I couldn't reach the language service. Please try again in a moment.",
			}, nil
		}
		return nil, err
	}

	p, err := plan.Build(it)
	if err != nil {
		if errors.Is(err, plan.ErrUnknownIntent) {
			return &Reply{Kind: ReplyAnswer, Text: rephraseText}, nil
		}
		return nil, err
	}

	res, err := s.executor.Run(ctx, sessionID, p)
	if err != nil {
		return shapePlanError(err), nil
	}
	if res.NeedsConfirmation {
		return &Reply{
			Kind:      ReplyNeedsConfirmation,
			TokenID:   res.TokenID,
			ExpiresAt: res.ExpiresAt,
			Text: fmt.Sprintf("Please confirm: %s. This request expires at %s.",
				res.Text, res.ExpiresAt.Format("15:04:05")),
		}, nil
	}
	return &Reply{Kind: ReplyAnswer, Text: res.Text}, nil
}

type Decision string

const (
	DecisionConfirm Decision = "confirm"
	DecisionCancel  Decision = "cancel"
)

// HandleConfirmation resolves a pending token: confirm places the frozen
// draft with the broker, cancel withdraws it. Either way the token is
// terminal afterwards.
func (s *Service) HandleConfirmation(ctx context.Context, sessionID, tokenID string, decision Decision) (*Reply, error) {
	switch decision {
	case DecisionCancel:
		if err := s.executor.CancelConfirmation(sessionID, tokenID); err != nil {
			return shapeConfirmError(err), nil
		}
		return &Reply{Kind: ReplyAnswer, Text: "Order cancelled. Nothing was sent to the broker."}, nil

	case DecisionConfirm:
		res, err := s.executor.ExecuteConfirmed(ctx, sessionID, tokenID)
		if err != nil {
			return shapeConfirmError(err), nil
		}
		return executionReply(res), nil

	default:
		return &Reply{
			Kind:      ReplyError,
			ErrorKind: "bad_decision",
			Text:      fmt.Sprintf("Decision must be %q or %q.", DecisionConfirm, DecisionCancel),
		}, nil
	}
}

// History lists recent execution attempts, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]order.ExecutionResult, error) {
	return s.audit.ListExecutions(ctx, limit)
}

func executionReply(res *order.ExecutionResult) *Reply {
	switch res.Status {
	case order.ExecutionFilled:
		return &Reply{
			Kind: ReplyAnswer,
			Text: fmt.Sprintf("Order placed: %s. Broker order id %s.", res.Draft.Summary(), res.BrokerOrderID),
		}
	case order.ExecutionRejected:
		return &Reply{
			Kind:      ReplyError,
			ErrorKind: "broker_rejected",
			Text:      fmt.Sprintf("The broker rejected the order: %s", res.Message),
		}
	default:
		return &Reply{
			Kind:      ReplyError,
			ErrorKind: "broker_error",
			Text: "The order could not be delivered to the broker: " + res.Message +
				". Check your order history before retrying.",
		}
	}
}

func shapePlanError(err error) *Reply {
	var amb *instrument.AmbiguousError
	if errors.As(err, &amb) {
		symbols := make([]string, len(amb.Candidates))
		for i, c := range amb.Candidates {
			symbols[i] = c.Display()
		}
		return &Reply{
			Kind:      ReplyError,
			ErrorKind: "ambiguous_symbol",
			Text: fmt.Sprintf("%q matches more than one instrument: %s. Which one did you mean?",
				amb.Fragment, strings.Join(symbols, ", ")),
		}
	}
	if errors.Is(err, instrument.ErrNotFound) {
		return &Reply{
			Kind:      ReplyError,
			ErrorKind: "symbol_not_found",
			Text:      "I couldn't find that stock. Check the name or try the exchange symbol.",
		}
	}
	var verr *order.ValidationError
	if errors.As(err, &verr) {
		return &Reply{
			Kind:      ReplyError,
			ErrorKind: "validation_error",
			Text:      fmt.Sprintf("That order isn't valid: %s %s.", verr.Field, verr.Reason),
		}
	}
	logger.Errorf("agent: plan failed: %v", err)
	return &Reply{
		Kind:      ReplyError,
		ErrorKind: "broker_unavailable",
		Text:      "I couldn't fetch the data needed for that request. Please try again shortly.",
	}
}

func shapeConfirmError(err error) *Reply {
	switch {
	case errors.Is(err, confirm.ErrExpired):
		return &Reply{
			Kind:      ReplyError,
			ErrorKind: "confirmation_expired",
			Text:      "That confirmation has expired. Start the order again to get a fresh one.",
		}
	case errors.Is(err, confirm.ErrAlreadyConsumed):
		return &Reply{
			Kind:      ReplyError,
			ErrorKind: "already_consumed",
			Text:      "That confirmation was already used. Check your order history for the result.",
		}
	case errors.Is(err, confirm.ErrCancelled):
		return &Reply{
			Kind:      ReplyError,
			ErrorKind: "confirmation_cancelled",
			Text:      "That confirmation was cancelled. Start the order again if you still want it.",
		}
	case errors.Is(err, confirm.ErrTokenNotFound):
		return &Reply{
			Kind:      ReplyError,
			ErrorKind: "token_not_found",
			Text:      "I don't recognise that confirmation. It may belong to another session.",
		}
	case errors.Is(err, confirm.ErrNotPending):
		return &Reply{
			Kind:      ReplyError,
			ErrorKind: "not_pending",
			Text:      "That confirmation is no longer pending.",
		}
	default:
		logger.Errorf("agent: confirmation failed: %v", err)
		return &Reply{
			Kind:      ReplyError,
			ErrorKind: "internal",
			Text:      "Something went wrong handling that confirmation. Please try again.",
		}
	}
}
