// Package api is the HTTP client for the bank API. Every method maps a single
// endpoint and converts failures into the apperr taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/GophBank/internal/client/apperr"
)

const apiPrefix = "/api/v1"

// Client talks to the bank API on behalf of one session.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger

	mu             sync.RWMutex
	token          string
	onUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a Client for the API served at baseURL.
func New(baseURL string, hc *http.Client, opts ...Option) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken sets the bearer token attached to authenticated calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// OnUnauthorized registers fn to run whenever an authenticated call is
// rejected with 401.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// errorBody is the failure envelope. Most endpoints use "error", the admin
// guard answers with "message" and token checks with "msg".
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Msg     string `json:"msg"`
}

// do sends one request. in is encoded as the JSON body when non-nil and the
// response is decoded into out when non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, auth bool, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return apperr.New(apperr.ErrValidation, op, "could not encode request", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return apperr.New(apperr.ErrNetwork, op, "", fmt.Errorf("build request: %w", err))
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if auth && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("api call failed",
			zap.String("op", op), zap.String("request_id", reqID), zap.Error(err))
		if errors.Is(err, context.Canceled) {
			return apperr.New(apperr.ErrNetwork, op, "request cancelled", err)
		}
		return apperr.New(apperr.ErrNetwork, op, "", err)
	}
	defer resp.Body.Close()

	c.log.Debug("api call",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", reqID),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperr.New(apperr.ErrNetwork, op, "invalid response from the bank", err)
		}
		return nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	msg := failureMessage(resp.StatusCode, data)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if auth {
			c.mu.RLock()
			hook := c.onUnauthorized
			c.mu.RUnlock()
			if hook != nil {
				hook()
			}
		}
		return &apperr.Error{Kind: apperr.ErrAuth, Op: op, Status: resp.StatusCode, Message: msg}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &apperr.Error{Kind: apperr.ErrValidation, Op: op, Status: resp.StatusCode, Message: msg}
	default:
		return &apperr.Error{Kind: apperr.ErrServer, Op: op, Status: resp.StatusCode, Message: msg}
	}
}

func failureMessage(status int, data []byte) string {
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil {
		if eb.Error != "" {
			return eb.Error
		}
		if eb.Message != "" {
			return eb.Message
		}
		if eb.Msg != "" {
			return eb.Msg
		}
	}
	if text := strings.TrimSpace(string(data)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "<") {
		return text
	}
	return strings.ToLower(http.StatusText(status))
}
