package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kuber/internal/config"
	"kuber/internal/logger"
	"kuber/internal/metrics"
)

// ChatClient speaks the OpenAI-compatible /v1/chat/completions protocol.
// 429 and 5xx responses are retried with backoff; anything else fails fast.
type ChatClient struct {
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	httpClient *http.Client
}

func NewChatClient(cfg config.OracleConfig) *ChatClient {
	url := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimSuffix(url, "/chat/completions")
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 2
	}
	return &ChatClient{
		baseURL:    url,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      cfg.Model,
		maxRetries: retries,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient sets the HTTP client for testing.
func (c *ChatClient) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func (c *ChatClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := []map[string]string{}
	if req.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.User})
	body, _ := json.Marshal(map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": 0.2,
	})

	logger.LogOracleRequest(req.Purpose, req.System, req.User)

	url := c.baseURL + "/chat/completions"
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		hreq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			hreq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		resp, err := c.httpClient.Do(hreq)
		if err != nil {
			metrics.OracleCall(req.Purpose, "error")
			return "", fmt.Errorf("oracle request failed: %w", err)
		}
		if resp.StatusCode/100 == 2 {
			var out struct {
				Choices []struct {
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
				} `json:"choices"`
			}
			derr := json.NewDecoder(resp.Body).Decode(&out)
			resp.Body.Close()
			if derr != nil {
				metrics.OracleCall(req.Purpose, "error")
				return "", fmt.Errorf("decoding oracle response failed: %w", derr)
			}
			if len(out.Choices) == 0 {
				metrics.OracleCall(req.Purpose, "error")
				return "", fmt.Errorf("oracle returned no choices")
			}
			raw := out.Choices[0].Message.Content
			logger.LogOracleResponse(req.Purpose, raw)
			metrics.OracleCall(req.Purpose, "ok")
			return raw, nil
		}
		var eresp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		resp.Body.Close()
		msg := strings.TrimSpace(eresp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		lastErr = fmt.Errorf("oracle status=%d: %s", resp.StatusCode, msg)
		if !retryableStatus(resp.StatusCode) || attempt == c.maxRetries {
			break
		}
		wait := retryWait(resp.Header.Get("Retry-After"), attempt)
		logger.Debugf("oracle retry in %s after %v", wait, lastErr)
		select {
		case <-ctx.Done():
			metrics.OracleCall(req.Purpose, "error")
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	metrics.OracleCall(req.Purpose, "error")
	return "", lastErr
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func retryWait(retryAfter string, attempt int) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	wait := 800 * time.Millisecond << attempt
	if wait > 8*time.Second {
		wait = 8 * time.Second
	}
	return wait
}
