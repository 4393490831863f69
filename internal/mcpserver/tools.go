package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mrgoonie/seo-insights-mcp-server/internal/ahrefs"
)

// ToolDefinition is the MCP tool descriptor sent in tools/list responses.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func ok(text string) (string, bool)  { return text, false }
func fail(text string) (string, bool) { return text, true }
func failf(format string, a ...any) (string, bool) {
	return fmt.Sprintf(format, a...), true
}

// MetricsClient is the slice of the query client the tools need.
type MetricsClient interface {
	Backlinks(ctx context.Context, domain string) (*ahrefs.BacklinksReport, error)
	KeywordIdeas(ctx context.Context, keyword, country, searchEngine string) ([]ahrefs.KeywordIdea, error)
	KeywordDifficulty(ctx context.Context, keyword, country string) (*ahrefs.DifficultyReport, error)
	Traffic(ctx context.Context, target, mode, country string) (*ahrefs.TrafficReport, error)
}

// ToolRegistry holds the metrics client and the definitions/handlers for all tools.
type ToolRegistry struct {
	c    MetricsClient
	defs []ToolDefinition
}

// NewToolRegistry creates a ToolRegistry backed by the given metrics client.
func NewToolRegistry(c MetricsClient) *ToolRegistry {
	r := &ToolRegistry{c: c}
	r.defs = []ToolDefinition{
		{
			Name: "get_backlinks",
			Description: "Get the backlink profile for a domain: an overview of its link metrics " +
				"plus the top backlinks pointing at it (anchor text, source and target URLs, " +
				"domain rating, edu/gov flags).",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"domain": map[string]any{
						"type":        "string",
						"description": "The domain to look up, e.g. example.com",
					},
				},
				"required": []string{"domain"},
			},
		},
		{
			Name: "get_keyword_ideas",
			Description: "Generate keyword ideas for a seed keyword. Returns two groups of " +
				"suggestions — keyword ideas and question ideas — each with country, " +
				"difficulty label, and search volume label.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"keyword": map[string]any{
						"type":        "string",
						"description": "The seed keyword, e.g. best running shoes",
					},
					"country": map[string]any{
						"type":        "string",
						"description": "Two-letter country code. Defaults to us.",
					},
					"search_engine": map[string]any{
						"type":        "string",
						"description": "Search engine to use. Defaults to Google.",
					},
				},
				"required": []string{"keyword"},
			},
		},
		{
			Name: "get_keyword_difficulty",
			Description: "Get the ranking difficulty score for a keyword along with the current " +
				"top-ranking pages and their metrics (domain rating, URL rating, traffic, " +
				"top keyword).",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"keyword": map[string]any{
						"type":        "string",
						"description": "The keyword to check, e.g. seo tools",
					},
					"country": map[string]any{
						"type":        "string",
						"description": "Two-letter country code. Defaults to us.",
					},
				},
				"required": []string{"keyword"},
			},
		},
		{
			Name: "get_traffic",
			Description: "Estimate organic search traffic for a website: monthly traffic and cost " +
				"averages, traffic history, and the top pages, countries, and keywords.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"domain_or_url": map[string]any{
						"type":        "string",
						"description": "The domain or URL to estimate traffic for, e.g. example.com",
					},
					"mode": map[string]any{
						"type":        "string",
						"description": "Scope of the lookup. Defaults to subdomains.",
						"enum":        []string{"subdomains", "exact"},
					},
					"country": map[string]any{
						"type":        "string",
						"description": "Country filter. Defaults to all countries.",
					},
				},
				"required": []string{"domain_or_url"},
			},
		},
	}
	return r
}

// Definitions returns the list of tool definitions for tools/list responses.
func (r *ToolRegistry) Definitions() []ToolDefinition {
	return r.defs
}

// Call dispatches a tool call by name and returns (output text, isError).
func (r *ToolRegistry) Call(ctx context.Context, name string, args json.RawMessage) (string, bool) {
	switch name {
	case "get_backlinks":
		return r.getBacklinks(ctx, args)
	case "get_keyword_ideas":
		return r.getKeywordIdeas(ctx, args)
	case "get_keyword_difficulty":
		return r.getKeywordDifficulty(ctx, args)
	case "get_traffic":
		return r.getTraffic(ctx, args)
	default:
		return failf("unknown tool: %q", name)
	}
}

// ── tool handlers ────────────────────────────────────────────────────────────

func (r *ToolRegistry) getBacklinks(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		Domain string `json:"domain"`
	}
	if err := json.Unmarshal(args, &in); err != nil || in.Domain == "" {
		return fail("domain is required")
	}

	report, err := r.c.Backlinks(ctx, in.Domain)
	if err != nil {
		return failf("backlinks lookup failed: %v", err)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	return ok(string(out))
}

func (r *ToolRegistry) getKeywordIdeas(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		Keyword      string `json:"keyword"`
		Country      string `json:"country"`
		SearchEngine string `json:"search_engine"`
	}
	if err := json.Unmarshal(args, &in); err != nil || in.Keyword == "" {
		return fail("keyword is required")
	}

	ideas, err := r.c.KeywordIdeas(ctx, in.Keyword, in.Country, in.SearchEngine)
	if err != nil {
		return failf("keyword ideas lookup failed: %v", err)
	}
	if len(ideas) == 0 {
		return ok("No keyword ideas found for the given keyword.")
	}

	out, _ := json.MarshalIndent(ideas, "", "  ")
	return ok(string(out))
}

func (r *ToolRegistry) getKeywordDifficulty(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		Keyword string `json:"keyword"`
		Country string `json:"country"`
	}
	if err := json.Unmarshal(args, &in); err != nil || in.Keyword == "" {
		return fail("keyword is required")
	}

	report, err := r.c.KeywordDifficulty(ctx, in.Keyword, in.Country)
	if err != nil {
		return failf("keyword difficulty lookup failed: %v", err)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	return ok(string(out))
}

func (r *ToolRegistry) getTraffic(ctx context.Context, args json.RawMessage) (string, bool) {
	var in struct {
		DomainOrURL string `json:"domain_or_url"`
		Mode        string `json:"mode"`
		Country     string `json:"country"`
	}
	if err := json.Unmarshal(args, &in); err != nil || in.DomainOrURL == "" {
		return fail("domain_or_url is required")
	}

	report, err := r.c.Traffic(ctx, in.DomainOrURL, in.Mode, in.Country)
	if err != nil {
		return failf("traffic lookup failed: %v", err)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	return ok(string(out))
}
