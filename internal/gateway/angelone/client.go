// Package angelone wraps the SmartAPI-style REST interface of the broker.
// Read operations retry transient failures behind a circuit breaker; order
// placement is sent exactly once and the broker's verdict is surfaced as-is.
package angelone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"kuber/internal/config"
	"kuber/internal/gateway/broker"
	"kuber/internal/logger"
	"kuber/internal/metrics"
	"kuber/internal/pkg/circuit"
)

type Client struct {
	baseURL     *url.URL
	apiKey      string
	httpClient  *http.Client
	readRetries int
	breaker     *circuit.Breaker

	mu       sync.RWMutex
	session  broker.Session
	loggedIn bool
}

func NewClient(cfg config.BrokerConfig) (*Client, error) {
	raw := strings.TrimSpace(cfg.APIURL)
	if raw == "" {
		return nil, fmt.Errorf("broker.api_url cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing broker.api_url failed: %w", err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	retries := cfg.ReadRetries
	if retries <= 0 {
		retries = 2
	}
	cooldown := time.Duration(cfg.BreakerCooldownSeconds) * time.Second
	return &Client{
		baseURL:     parsed,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		httpClient:  &http.Client{Timeout: timeout},
		readRetries: retries,
		breaker:     circuit.NewBreaker("angelone", cfg.BreakerThreshold, cooldown),
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetSession installs the opaque credential minted by the login flow.
func (c *Client) SetSession(s broker.Session) {
	c.mu.Lock()
	c.session = s
	c.loggedIn = s.AccessToken != ""
	c.mu.Unlock()
}

func (c *Client) HasSession() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loggedIn
}

func (c *Client) accessToken() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loggedIn {
		return "", broker.ErrNotLoggedIn
	}
	return c.session.AccessToken, nil
}

// envelope is the broker's uniform response wrapper.
type envelope struct {
	Status    bool            `json:"status"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"errorcode"`
	Data      json.RawMessage `json:"data"`
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("broker status=%d: %s", e.StatusCode, e.Body)
}

func (e *httpError) transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// do performs one request and returns the decoded envelope together with the
// raw body. Authentication headers are attached when a session exists.
func (c *Client) do(ctx context.Context, method, path string, payload any, needAuth bool) (envelope, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return envelope{}, nil, err
		}
		body = bytes.NewReader(b)
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return envelope{}, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-PrivateKey", c.apiKey)
	}
	if needAuth {
		token, err := c.accessToken()
		if err != nil {
			return envelope{}, nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return envelope{}, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope{}, nil, err
	}
	if resp.StatusCode/100 != 2 {
		return envelope{}, raw, &httpError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, raw, fmt.Errorf("decoding broker response failed: %w", err)
	}
	return env, raw, nil
}

// read wraps do with bounded retry and the circuit breaker. Only transient
// transport failures are retried; a well-formed negative envelope is final.
func (c *Client) read(ctx context.Context, op, method, path string, payload any) (envelope, error) {
	if !c.breaker.Allow() {
		metrics.BrokerCall(op, "short_circuit")
		return envelope{}, fmt.Errorf("broker %s unavailable: circuit open", op)
	}
	var lastErr error
	for attempt := 0; attempt <= c.readRetries; attempt++ {
		env, _, err := c.do(ctx, method, path, payload, true)
		if err == nil {
			if !env.Status {
				c.breaker.RecordSuccess()
				metrics.BrokerCall(op, "rejected")
				return envelope{}, fmt.Errorf("broker %s failed: %s (%s)", op, env.Message, env.ErrorCode)
			}
			c.breaker.RecordSuccess()
			metrics.BrokerCall(op, "ok")
			return env, nil
		}
		lastErr = err
		var herr *httpError
		retryable := false
		if errors.As(err, &herr) {
			retryable = herr.transient()
		} else if ctx.Err() == nil {
			// Network-level failure; worth one more try.
			retryable = true
		}
		if !retryable || attempt == c.readRetries {
			break
		}
		wait := 500 * time.Millisecond << attempt
		logger.Debugf("broker %s retry in %s after %v", op, wait, err)
		select {
		case <-ctx.Done():
			metrics.BrokerCall(op, "error")
			return envelope{}, ctx.Err()
		case <-time.After(wait):
		}
	}
	c.breaker.RecordFailure()
	metrics.BrokerCall(op, "error")
	return envelope{}, lastErr
}
