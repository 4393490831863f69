package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/mrgoonie/seo-insights-mcp-server/internal/credcache"
	"go.uber.org/zap"
)

// DefaultPlatformBase is the target platform's internal API base.
const DefaultPlatformBase = "https://ahrefs.com/v4"

// Exchange trades a solved verification token for a short-lived signed
// credential scoped to one subject. On success the credential is
// persisted to the cache before being returned.
//
// Like the solver, Exchange never returns an error: failures are logged
// and reported as absence, and the Provider converts absence into a
// domain error.
type Exchange struct {
	baseURL    string
	httpClient *http.Client
	store      credcache.Store
	logger     *zap.Logger
}

// ExchangeOption configures an Exchange.
type ExchangeOption func(*Exchange)

// WithExchangeBaseURL overrides the platform base URL.
func WithExchangeBaseURL(u string) ExchangeOption {
	return func(e *Exchange) { e.baseURL = u }
}

// WithExchangeHTTPClient sets a custom http.Client.
func WithExchangeHTTPClient(hc *http.Client) ExchangeOption {
	return func(e *Exchange) { e.httpClient = hc }
}

// NewExchange creates an Exchange that persists minted credentials to store.
func NewExchange(store credcache.Store, logger *zap.Logger, opts ...ExchangeOption) *Exchange {
	e := &Exchange{
		baseURL:    DefaultPlatformBase,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      store,
		logger:     logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// overviewResponse is the second element of the platform's tagged-array
// reply to the overview endpoint.
type overviewResponse struct {
	SignedInput struct {
		Signature string `json:"signature"`
		Input     struct {
			ValidUntil string `json:"validUntil"`
		} `json:"input"`
	} `json:"signedInput"`
	Data json.RawMessage `json:"data"`
}

// Mint sends the solved token to the platform's overview endpoint and
// returns the signed credential it issues for subject. Any shape or
// transport failure yields (nil, false); a cache write failure does not,
// since the credential is still usable in memory.
func (e *Exchange) Mint(ctx context.Context, token, subject string) (*credcache.Credential, bool) {
	payload := map[string]any{
		"captcha": token,
		"mode":    "subdomains",
		"url":     subject,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		e.logger.Warn("marshal mint request", zap.String("subject", subject), zap.Error(err))
		return nil, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/stGetFreeBacklinksOverview", bytes.NewReader(body))
	if err != nil {
		e.logger.Warn("build mint request", zap.String("subject", subject), zap.Error(err))
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.logger.Warn("mint request failed", zap.String("subject", subject), zap.Error(err))
		return nil, false
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		e.logger.Warn("read mint response", zap.String("subject", subject), zap.Error(err))
		return nil, false
	}
	if resp.StatusCode >= 300 {
		e.logger.Warn("mint returned non-2xx",
			zap.String("subject", subject),
			zap.Int("status", resp.StatusCode),
		)
		return nil, false
	}

	// The platform replies with a two-element tagged array, e.g.
	// ["Ok", {signedInput: {...}, data: {...}}].
	var elems []json.RawMessage
	if err := json.Unmarshal(respBody, &elems); err != nil || len(elems) < 2 {
		e.logger.Warn("mint response is not a tagged array", zap.String("subject", subject))
		return nil, false
	}
	var overview overviewResponse
	if err := json.Unmarshal(elems[1], &overview); err != nil {
		e.logger.Warn("decode mint payload", zap.String("subject", subject), zap.Error(err))
		return nil, false
	}
	if overview.SignedInput.Signature == "" || overview.SignedInput.Input.ValidUntil == "" {
		e.logger.Warn("mint payload missing signature or validUntil", zap.String("subject", subject))
		return nil, false
	}

	cred := &credcache.Credential{
		Subject:      subject,
		Signature:    overview.SignedInput.Signature,
		ValidUntil:   overview.SignedInput.Input.ValidUntil,
		OverviewData: overview.Data,
		Timestamp:    time.Now().UTC(),
	}

	if !e.store.Save(subject, cred) {
		e.logger.Warn("credential cache write failed, continuing with in-memory credential",
			zap.String("subject", subject),
		)
	}

	e.logger.Info("minted signed credential",
		zap.String("subject", subject),
		zap.String("valid_until", cred.ValidUntil),
	)
	return cred, true
}
