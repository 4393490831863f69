// Package ahrefs queries the target platform's free SEO tool endpoints
// and normalizes their nested tagged-array responses into stable, flat
// client-facing shapes.
//
// The platform wraps most replies in a two-element tagged array such as
// ["Ok", {...}]. Backlinks and keyword-idea responses are decoded
// permissively (a missing or malformed sub-payload becomes an empty
// result); keyword-difficulty and traffic responses treat the "Ok" tag
// as a firm contract and fail hard when it is absent.
package ahrefs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mrgoonie/seo-insights-mcp-server/internal/credcache"
	"go.uber.org/zap"
)

var (
	// ErrInvalidResponseFormat signals that the platform returned a shape
	// the normalizer cannot interpret. Only the keyword-difficulty and
	// traffic endpoints raise it; the other endpoints degrade softly.
	ErrInvalidResponseFormat = errors.New("invalid response format from platform")

	// ErrUpstreamStatus signals a non-2xx response from a platform data
	// endpoint.
	ErrUpstreamStatus = errors.New("upstream returned error status")
)

// DefaultBaseURL is the platform's internal API base.
const DefaultBaseURL = "https://ahrefs.com/v4"

// defaultPagesBase hosts the public tool pages that embed the anti-bot
// challenge. The solver is pointed at these, never at the API base.
const defaultPagesBase = "https://ahrefs.com"

// CredentialSource returns a valid signed credential for a subject,
// solving the challenge on siteURL when the cache cannot serve it.
// *credential.Provider satisfies this interface.
type CredentialSource interface {
	Obtain(ctx context.Context, subject, siteURL string) (*credcache.Credential, error)
}

// ChallengeSolver obtains a one-shot verification token for a challenge
// page. *solver.Client satisfies this interface.
type ChallengeSolver interface {
	Solve(ctx context.Context, siteURL string) (string, bool)
}

// Client executes the four query categories against the platform.
//
// Only the backlinks flow goes through the CredentialSource (and with it
// the credential cache): its overview signature is reusable across the
// validity window. The other three categories solve a fresh challenge
// per call because their endpoints are not backed by the same reusable
// signature.
type Client struct {
	baseURL    string
	pagesBase  string
	httpClient *http.Client
	creds      CredentialSource
	solver     ChallengeSolver
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the platform API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithPagesBaseURL overrides the base URL used to build challenge page
// URLs passed to the solver.
func WithPagesBaseURL(u string) Option {
	return func(c *Client) { c.pagesBase = u }
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a platform Client.
func NewClient(creds CredentialSource, solver ChallengeSolver, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		pagesBase:  defaultPagesBase,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		creds:      creds,
		solver:     solver,
		logger:     logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ── challenge page URLs ─────────────────────────────────────────────────────

func (c *Client) backlinkCheckerURL(domain string) string {
	return c.pagesBase + "/backlink-checker/?input=" + url.QueryEscape(domain) + "&mode=subdomains"
}

func (c *Client) keywordGeneratorURL(country string) string {
	return c.pagesBase + "/keyword-generator/?country=" + url.QueryEscape(country)
}

func (c *Client) keywordDifficultyURL() string {
	return c.pagesBase + "/keyword-difficulty/"
}

func (c *Client) trafficCheckerURL(target, mode string) string {
	return c.pagesBase + "/traffic-checker/?input=" + url.QueryEscape(target) + "&mode=" + url.QueryEscape(mode)
}

// ── HTTP plumbing ───────────────────────────────────────────────────────────

// postJSON posts a JSON payload to an API endpoint and returns the raw
// response body. Non-2xx statuses map to ErrUpstreamStatus.
func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(req, path)
}

// getWithInput performs the platform's query-parameter-encoded GET: the
// whole request payload is serialized as one query-string value.
func (c *Client) getWithInput(ctx context.Context, path string, payload any) ([]byte, error) {
	input, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal input: %w", err)
	}

	target := c.baseURL + path + "?input=" + url.QueryEscape(string(input))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, path)
}

func (c *Client) do(req *http.Request, path string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", path, err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrUpstreamStatus, resp.StatusCode, path)
	}
	return body, nil
}

// ── tagged-array decoding ───────────────────────────────────────────────────

// decodeTagged splits a two-element tagged array (["Ok", {...}]) into
// its tag and payload. Any other shape is an unrecognized-shape error.
func decodeTagged(body []byte) (string, json.RawMessage, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(body, &elems); err != nil {
		return "", nil, fmt.Errorf("%w: not a JSON array", ErrInvalidResponseFormat)
	}
	if len(elems) < 2 {
		return "", nil, fmt.Errorf("%w: expected a two-element tagged array, got %d elements",
			ErrInvalidResponseFormat, len(elems))
	}
	var tag string
	if err := json.Unmarshal(elems[0], &tag); err != nil {
		return "", nil, fmt.Errorf("%w: tag is not a string", ErrInvalidResponseFormat)
	}
	return tag, elems[1], nil
}

// requireOk decodes a tagged array and enforces the "Ok" tag.
func requireOk(body []byte) (json.RawMessage, error) {
	tag, payload, err := decodeTagged(body)
	if err != nil {
		return nil, err
	}
	if tag != "Ok" {
		return nil, fmt.Errorf("%w: expected tag %q, got %q", ErrInvalidResponseFormat, "Ok", tag)
	}
	return payload, nil
}
