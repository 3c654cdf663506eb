package graph

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/pkg/metrics"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultBaseURL    = "https://graph.microsoft.com/v1.0"
	defaultRetryAfter = 5 // seconds, when a 429 carries no Retry-After
)

var (
	// ErrUnauthorized is returned when a 401 survives one token refresh, or
	// when no refresh is possible.
	ErrUnauthorized = errors.New("graph: unauthorized")
)

// RetryExhaustedError reports that every attempt failed with a retryable
// condition. LastStatus is 0 when the last attempt failed at the network level.
type RetryExhaustedError struct {
	URL        string
	Attempts   int
	LastStatus int
	Err        error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("graph: all %d attempts to %s failed (last status %d): %v", e.Attempts, e.URL, e.LastStatus, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// StatusError is a completed call with a status the caller did not expect.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("graph: %s returned %d: %s", e.URL, e.Status, e.Body)
}

// Request is an immutable description of one Graph call. Every attempt builds
// a fresh *http.Request from it.
type Request struct {
	Method string
	URL    string
	Body   []byte
	Token  string
}

// WithToken returns a copy of r carrying a different bearer token.
func (r Request) WithToken(token string) Request {
	r.Token = token
	return r
}

func (r Request) build(ctx context.Context) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.Token)
	if len(r.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// RefreshFunc obtains a new access token after a 401.
type RefreshFunc func(ctx context.Context) (string, error)

// Credential carries the caller's current access token across many calls.
// A refresh performed by one call is visible to the next.
type Credential struct {
	mu      sync.RWMutex
	token   string
	refresh RefreshFunc
}

func NewCredential(token string, refresh RefreshFunc) *Credential {
	return &Credential{token: token, refresh: refresh}
}

func (c *Credential) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Refresher returns the refresh callback to hand to Do, or nil when the
// credential cannot be refreshed.
func (c *Credential) Refresher() RefreshFunc {
	if c.refresh == nil {
		return nil
	}
	return func(ctx context.Context) (string, error) {
		token, err := c.refresh(ctx)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.token = token
		c.mu.Unlock()
		return token, nil
	}
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryWait  time.Duration
	logger     logger.ILogger
}

func NewClient(baseURL string, maxRetries int, log logger.ILogger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: maxRetries,
		retryWait:  500 * time.Millisecond,
		logger:     log,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Do executes req with the retry policy: a 429 waits Retry-After seconds
// (default 5), a 401 triggers at most one refresh, network errors are retried.
// At most 1+maxRetries attempts are made. Any other status is returned to the
// caller as a Response without error.
func (c *Client) Do(ctx context.Context, req Request, refresh RefreshFunc) (*Response, error) {
	current := req
	refreshed := false
	attempts := 0
	lastStatus := 0

	operation := func() (*Response, error) {
		attempts++
		httpReq, err := current.build(ctx)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastStatus = 0
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			c.logger.Warn("Graph", "Request error", map[string]interface{}{"url": current.URL, "error": err.Error()})
			metrics.GraphRetriesTotal.WithLabelValues("network").Inc()
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			lastStatus = 0
			metrics.GraphRetriesTotal.WithLabelValues("network").Inc()
			return nil, fmt.Errorf("read body: %w", err)
		}
		lastStatus = resp.StatusCode

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			if refreshed || refresh == nil {
				return nil, backoff.Permanent(ErrUnauthorized)
			}
			refreshed = true
			c.logger.Warn("Graph", "Received 401, refreshing token", map[string]interface{}{"url": current.URL})
			token, rerr := refresh(ctx)
			if rerr != nil || token == "" {
				return nil, backoff.Permanent(fmt.Errorf("%w: refresh failed: %v", ErrUnauthorized, rerr))
			}
			current = current.WithToken(token)
			metrics.GraphRetriesTotal.WithLabelValues("unauthorized").Inc()
			// Retry immediately with the new token.
			return nil, backoff.RetryAfter(0)
		case http.StatusTooManyRequests:
			wait := defaultRetryAfter
			if v, perr := strconv.Atoi(resp.Header.Get("Retry-After")); perr == nil && v >= 0 {
				wait = v
			}
			c.logger.Warn("Graph", "Rate limited", map[string]interface{}{"url": current.URL, "retry_after": wait})
			metrics.GraphRetriesTotal.WithLabelValues("rate_limited").Inc()
			return nil, backoff.RetryAfter(wait)
		}

		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.retryWait)),
		backoff.WithMaxTries(uint(c.maxRetries+1)),
		backoff.WithMaxElapsedTime(0),
	)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return nil, permanent.Unwrap()
	}

	c.logger.Error("Graph", "Max retries exceeded", map[string]interface{}{"url": current.URL, "attempts": attempts})
	return nil, &RetryExhaustedError{URL: current.URL, Attempts: attempts, LastStatus: lastStatus, Err: err}
}

// get performs a GET with the credential and requires a 200.
func (c *Client) get(ctx context.Context, cred *Credential, url string) ([]byte, error) {
	res, err := c.Do(ctx, Request{Method: http.MethodGet, URL: url, Token: cred.Token()}, cred.Refresher())
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, Status: res.StatusCode, Body: truncate(string(res.Body), 300)}
	}
	return res.Body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
