// Package solver integrates with a remote CAPTCHA-solving service to
// obtain anti-bot verification tokens for the target platform.
//
// The service is a black box reached over request/response: submit a
// task, then poll for the solution at a fixed interval up to a fixed
// attempt ceiling. The client never returns an error to callers — every
// failure path is logged with context and reported as "no token", and
// the credential provider converts that absence into a domain error.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the solving service endpoint base.
	DefaultBaseURL = "https://api.capsolver.com"

	// turnstileSiteKey is the fixed Cloudflare Turnstile site key the
	// target platform embeds on its free-tool pages.
	turnstileSiteKey = "0x4AAAAAAAAzi9ispzJQ1G1y"

	taskType = "AntiTurnstileTaskProxyLess"
)

// Task statuses reported by the solving service.
const (
	statusPending = "pending"
	statusReady   = "ready"
	statusFailed  = "failed"
)

// Client submits anti-bot challenge tasks to the solving service and
// polls until a token is produced or the attempt ceiling is reached.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
	maxAttempts  int
	logger       *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the solving service base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPolling overrides the poll interval and attempt ceiling. The
// defaults (1 s, 30 attempts) bound a solve at roughly 30 seconds.
func WithPolling(interval time.Duration, attempts int) Option {
	return func(c *Client) {
		c.pollInterval = interval
		c.maxAttempts = attempts
	}
}

// New creates a solver Client. apiKey may be empty, in which case every
// Solve call fails fast without touching the network.
func New(apiKey string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: time.Second,
		maxAttempts:  30,
		logger:       logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Solve obtains a verification token for the challenge embedded on
// siteURL. It returns ("", false) when the token cannot be obtained:
// missing API key, task creation failure, explicit solve failure, or
// polling timeout. It never returns an error.
func (c *Client) Solve(ctx context.Context, siteURL string) (string, bool) {
	if c.apiKey == "" {
		c.logger.Warn("solver API key not configured, cannot solve challenge",
			zap.String("site_url", siteURL),
		)
		return "", false
	}

	taskID, ok := c.createTask(ctx, siteURL)
	if !ok {
		return "", false
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			c.logger.Warn("challenge solve cancelled",
				zap.String("site_url", siteURL),
				zap.Error(ctx.Err()),
			)
			return "", false
		case <-time.After(c.pollInterval):
		}

		token, status := c.pollTask(ctx, taskID)
		switch status {
		case statusReady:
			c.logger.Info("challenge solved",
				zap.String("site_url", siteURL),
				zap.Int("attempts", attempt),
			)
			return token, true
		case statusFailed:
			c.logger.Warn("challenge solve failed",
				zap.String("site_url", siteURL),
				zap.String("task_id", taskID),
			)
			return "", false
		default:
			// still pending, keep polling
		}
	}

	c.logger.Warn("challenge solve timed out",
		zap.String("site_url", siteURL),
		zap.String("task_id", taskID),
		zap.Int("attempts", c.maxAttempts),
	)
	return "", false
}

// createTask submits the challenge task and returns its identifier.
func (c *Client) createTask(ctx context.Context, siteURL string) (string, bool) {
	payload := map[string]any{
		"clientKey": c.apiKey,
		"task": map[string]any{
			"type":       taskType,
			"websiteKey": turnstileSiteKey,
			"websiteURL": siteURL,
			"metadata":   map[string]string{"action": ""},
		},
	}

	var resp struct {
		ErrorID          int    `json:"errorId"`
		ErrorDescription string `json:"errorDescription"`
		TaskID           string `json:"taskId"`
	}
	if !c.post(ctx, "/createTask", payload, &resp) {
		return "", false
	}
	if resp.ErrorID != 0 {
		c.logger.Warn("solver rejected task",
			zap.String("site_url", siteURL),
			zap.Int("error_id", resp.ErrorID),
			zap.String("description", resp.ErrorDescription),
		)
		return "", false
	}
	if resp.TaskID == "" {
		c.logger.Warn("solver response missing task id", zap.String("site_url", siteURL))
		return "", false
	}
	return resp.TaskID, true
}

// pollTask checks the task once and returns (token, status). A transport
// or decode failure counts as an explicit failure: further polls of a
// broken exchange are unlikely to recover within the ceiling.
func (c *Client) pollTask(ctx context.Context, taskID string) (string, string) {
	payload := map[string]any{
		"clientKey": c.apiKey,
		"taskId":    taskID,
	}

	var resp struct {
		ErrorID  int    `json:"errorId"`
		Status   string `json:"status"`
		Solution struct {
			Token string `json:"token"`
		} `json:"solution"`
	}
	if !c.post(ctx, "/getTaskResult", payload, &resp) {
		return "", statusFailed
	}
	if resp.ErrorID != 0 {
		c.logger.Warn("solver reported task error",
			zap.String("task_id", taskID),
			zap.Int("error_id", resp.ErrorID),
		)
		return "", statusFailed
	}
	if resp.Status == statusReady && resp.Solution.Token == "" {
		c.logger.Warn("solver marked task ready without a token", zap.String("task_id", taskID))
		return "", statusFailed
	}
	return resp.Solution.Token, resp.Status
}

// post sends a JSON payload and decodes the JSON response. Returns false
// on any transport, status, or decode failure (logged).
func (c *Client) post(ctx context.Context, path string, payload, out any) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("marshal solver request", zap.String("path", path), zap.Error(err))
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		c.logger.Warn("build solver request", zap.String("path", path), zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("solver request failed", zap.String("path", path), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.logger.Warn("read solver response", zap.String("path", path), zap.Error(err))
		return false
	}
	if resp.StatusCode >= 300 {
		c.logger.Warn("solver returned non-2xx",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody),
		)
		return false
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		c.logger.Warn("decode solver response", zap.String("path", path), zap.Error(err))
		return false
	}
	return true
}
