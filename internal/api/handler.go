// Package api exposes the SEO metrics lookups over HTTP for callers that
// want a plain REST surface instead of the MCP stdio transport.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mrgoonie/seo-insights-mcp-server/internal/ahrefs"
	"github.com/mrgoonie/seo-insights-mcp-server/internal/credential"
	"go.uber.org/zap"
)

// MetricsClient is the slice of the query client the HTTP handlers need.
type MetricsClient interface {
	Backlinks(ctx context.Context, domain string) (*ahrefs.BacklinksReport, error)
	KeywordIdeas(ctx context.Context, keyword, country, searchEngine string) ([]ahrefs.KeywordIdea, error)
	KeywordDifficulty(ctx context.Context, keyword, country string) (*ahrefs.DifficultyReport, error)
	Traffic(ctx context.Context, target, mode, country string) (*ahrefs.TrafficReport, error)
}

// Handler serves the /api/v1 metrics routes.
type Handler struct {
	client MetricsClient
	logger *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(client MetricsClient, logger *zap.Logger) *Handler {
	return &Handler{client: client, logger: logger}
}

// Register mounts the metrics routes on the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/backlinks", h.Backlinks)
	rg.GET("/keyword-ideas", h.KeywordIdeas)
	rg.GET("/keyword-difficulty", h.KeywordDifficulty)
	rg.GET("/traffic", h.Traffic)
}

// Backlinks handles GET /backlinks?domain=example.com.
func (h *Handler) Backlinks(c *gin.Context) {
	domain := c.Query("domain")
	if domain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain is required"})
		return
	}

	report, err := h.client.Backlinks(c.Request.Context(), domain)
	if err != nil {
		h.fail(c, "backlinks", err)
		return
	}
	RecordQuery("backlinks", true)
	c.JSON(http.StatusOK, report)
}

// KeywordIdeas handles GET /keyword-ideas?keyword=...&country=us&search_engine=Google.
func (h *Handler) KeywordIdeas(c *gin.Context) {
	keyword := c.Query("keyword")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keyword is required"})
		return
	}

	ideas, err := h.client.KeywordIdeas(c.Request.Context(), keyword,
		c.Query("country"), c.Query("search_engine"))
	if err != nil {
		h.fail(c, "keyword-ideas", err)
		return
	}
	RecordQuery("keyword-ideas", true)
	c.JSON(http.StatusOK, gin.H{"ideas": ideas})
}

// KeywordDifficulty handles GET /keyword-difficulty?keyword=...&country=us.
func (h *Handler) KeywordDifficulty(c *gin.Context) {
	keyword := c.Query("keyword")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keyword is required"})
		return
	}

	report, err := h.client.KeywordDifficulty(c.Request.Context(), keyword, c.Query("country"))
	if err != nil {
		h.fail(c, "keyword-difficulty", err)
		return
	}
	RecordQuery("keyword-difficulty", true)
	c.JSON(http.StatusOK, report)
}

// Traffic handles GET /traffic?domain_or_url=...&mode=subdomains&country=None.
func (h *Handler) Traffic(c *gin.Context) {
	target := c.Query("domain_or_url")
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain_or_url is required"})
		return
	}

	report, err := h.client.Traffic(c.Request.Context(), target,
		c.Query("mode"), c.Query("country"))
	if err != nil {
		h.fail(c, "traffic", err)
		return
	}
	RecordQuery("traffic", true)
	c.JSON(http.StatusOK, report)
}

// fail maps domain errors to HTTP statuses. Everything coming out of the
// query client is an upstream problem of one kind or another, so the split
// is 503 for credential acquisition and 502 for a misbehaving platform.
func (h *Handler) fail(c *gin.Context, query string, err error) {
	RecordQuery(query, false)

	switch {
	case errors.Is(err, credential.ErrUnavailable):
		h.logger.Warn("credential acquisition failed", zap.String("query", query), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, ahrefs.ErrInvalidResponseFormat), errors.Is(err, ahrefs.ErrUpstreamStatus):
		h.logger.Warn("upstream returned bad data", zap.String("query", query), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		h.logger.Error("query failed", zap.String("query", query), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
