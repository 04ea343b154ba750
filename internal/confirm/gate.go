// Package confirm is the single safety boundary between "intent to trade" and
// the broker. No code path reaches order placement without a confirmed
// transition here.
package confirm

import (
	"errors"
	"sync"
	"time"

	"kuber/internal/logger"
	"kuber/internal/metrics"
	"kuber/internal/order"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

var (
	ErrTokenNotFound   = errors.New("confirmation token not found")
	ErrExpired         = errors.New("confirmation expired")
	ErrAlreadyConsumed = errors.New("confirmation already consumed")
	ErrCancelled       = errors.New("confirmation was cancelled")
	ErrNotPending      = errors.New("confirmation is not pending")
)

// Token owns its draft from issue until the confirmed transition hands the
// draft back to the caller, exactly once.
type Token struct {
	ID         string
	SessionID  string
	Draft      order.Draft
	IssuedAt   time.Time
	ExpiresAt  time.Time
	ResolvedAt time.Time
	Status     Status
}

// terminalRetention is how long a resolved token stays in the table after it
// leaves pending, so a late Confirm still gets the precise answer
// (ErrAlreadyConsumed, ErrExpired, ErrCancelled) instead of ErrTokenNotFound.
const terminalRetention = time.Hour

// Gate keeps one token table per conversational session. Sessions lock
// independently so one user's confirm never blocks another's issue.
type Gate struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*sessionTokens
}

type sessionTokens struct {
	mu      sync.Mutex
	pending *Token
	byID    map[string]*Token
}

func NewGate(ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	return &Gate{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*sessionTokens),
	}
}

// SetClock overrides the time source for tests.
func (g *Gate) SetClock(now func() time.Time) {
	g.now = now
}

func (g *Gate) session(id string) *sessionTokens {
	g.mu.RLock()
	s := g.sessions[id]
	g.mu.RUnlock()
	if s != nil {
		return s
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if s = g.sessions[id]; s == nil {
		s = &sessionTokens{byID: make(map[string]*Token)}
		g.sessions[id] = s
	}
	return s
}

// Issue creates a pending token owning the draft. Any prior pending token of
// the same session is cancelled first; other sessions are untouched.
func (g *Gate) Issue(sessionID string, draft order.Draft) *Token {
	s := g.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := g.now()
	if prev := s.pending; prev != nil && prev.Status == StatusPending {
		prev.Status = StatusCancelled
		prev.ResolvedAt = now
		logger.Infof("confirm: session %s superseded pending token %s", sessionID, prev.ID)
	}
	tok := &Token{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Draft:     draft,
		IssuedAt:  now,
		ExpiresAt: now.Add(g.ttl),
		Status:    StatusPending,
	}
	s.byID[tok.ID] = tok
	s.pending = tok
	metrics.TokenIssued()
	return tok
}

// Confirm transitions pending → confirmed and returns ownership of the frozen
// draft exactly once. The expiry check is evaluated here with the current
// clock, regardless of the sweeper's timing.
func (g *Gate) Confirm(sessionID, tokenID string) (order.Draft, error) {
	s := g.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.byID[tokenID]
	if !ok {
		return order.Draft{}, ErrTokenNotFound
	}
	now := g.now()
	if now.After(tok.ExpiresAt) {
		if tok.Status == StatusPending {
			tok.Status = StatusExpired
			tok.ResolvedAt = now
			s.clearPending(tok)
		}
		if tok.Status == StatusExpired {
			return order.Draft{}, ErrExpired
		}
	}
	switch tok.Status {
	case StatusPending:
		tok.Status = StatusConfirmed
		tok.ResolvedAt = now
		s.clearPending(tok)
		return tok.Draft, nil
	case StatusConfirmed:
		return order.Draft{}, ErrAlreadyConsumed
	case StatusExpired:
		return order.Draft{}, ErrExpired
	case StatusCancelled:
		return order.Draft{}, ErrCancelled
	default:
		return order.Draft{}, ErrNotPending
	}
}

// Cancel is the user-initiated abort, valid from pending only.
func (g *Gate) Cancel(sessionID, tokenID string) error {
	s := g.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.byID[tokenID]
	if !ok {
		return ErrTokenNotFound
	}
	if tok.Status != StatusPending {
		return ErrNotPending
	}
	tok.Status = StatusCancelled
	tok.ResolvedAt = g.now()
	s.clearPending(tok)
	return nil
}

// Sweep expires every overdue pending token, deletes resolved tokens that have
// outlived the retention window, and drops session entries left empty. It
// reports how many pendings it expired.
func (g *Gate) Sweep(now time.Time) int {
	g.mu.RLock()
	sessions := make(map[string]*sessionTokens, len(g.sessions))
	for id, s := range g.sessions {
		sessions[id] = s
	}
	g.mu.RUnlock()
	expired, dropped := 0, 0
	empty := make([]string, 0)
	for id, s := range sessions {
		s.mu.Lock()
		for _, tok := range s.byID {
			switch {
			case tok.Status == StatusPending && now.After(tok.ExpiresAt):
				tok.Status = StatusExpired
				tok.ResolvedAt = now
				s.clearPending(tok)
				expired++
			case tok.Status != StatusPending && now.After(tok.ResolvedAt.Add(terminalRetention)):
				delete(s.byID, tok.ID)
				dropped++
			}
		}
		if len(s.byID) == 0 && s.pending == nil {
			empty = append(empty, id)
		}
		s.mu.Unlock()
	}
	if len(empty) > 0 {
		g.mu.Lock()
		for _, id := range empty {
			s := g.sessions[id]
			if s == nil {
				continue
			}
			s.mu.Lock()
			if len(s.byID) == 0 && s.pending == nil {
				delete(g.sessions, id)
			}
			s.mu.Unlock()
		}
		g.mu.Unlock()
	}
	if expired > 0 {
		metrics.TokensExpired(expired)
	}
	if expired > 0 || dropped > 0 {
		logger.Debugf("confirm: swept %d expired, dropped %d resolved token(s)", expired, dropped)
	}
	return expired
}

// Status reports a token's current state, for UI display.
func (g *Gate) Status(sessionID, tokenID string) (Status, error) {
	s := g.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.byID[tokenID]
	if !ok {
		return "", ErrTokenNotFound
	}
	return tok.Status, nil
}

func (s *sessionTokens) clearPending(tok *Token) {
	if s.pending == tok {
		s.pending = nil
	}
}
