package ahrefs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mrgoonie/seo-insights-mcp-server/internal/credential"
	"go.uber.org/zap"
)

// SerpMetrics carries the optional per-result ranking metrics.
type SerpMetrics struct {
	DomainRating float64 `json:"domainRating"`
	URLRating    float64 `json:"urlRating"`
	Traffic      float64 `json:"traffic"`
	Keywords     float64 `json:"keywords"`
	TopKeyword   string  `json:"topKeyword"`
	TopVolume    float64 `json:"topVolume"`
}

// SerpResult is one normalized organic search result.
type SerpResult struct {
	Title    string       `json:"title"`
	URL      string       `json:"url"`
	Position int          `json:"position"`
	Metrics  *SerpMetrics `json:"metrics,omitempty"`
}

// DifficultyReport is the normalized keyword-difficulty response.
type DifficultyReport struct {
	Difficulty float64      `json:"difficulty"`
	Shortage   float64      `json:"shortage"`
	LastUpdate string       `json:"lastUpdate"`
	Serp       []SerpResult `json:"serp"`
}

// serpEntry mirrors one raw SERP row: a position plus a tagged content
// variant such as ["organic", {...}].
type serpEntry struct {
	Pos     int             `json:"pos"`
	Content json.RawMessage `json:"content"`
}

// organicPayload is the second element of an "organic"-tagged content
// variant.
type organicPayload struct {
	Link *struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"link"`
	Metrics *SerpMetrics `json:"metrics"`
}

// KeywordDifficulty fetches the difficulty score and SERP overview for a
// keyword. A fresh challenge is solved per call. Unlike backlinks and
// keyword ideas, a response without the "Ok" tag is a hard error: here a
// malformed response signals an upstream contract break, not an empty
// result set.
func (c *Client) KeywordDifficulty(ctx context.Context, keyword, country string) (*DifficultyReport, error) {
	if country == "" {
		country = "us"
	}

	token, ok := c.solver.Solve(ctx, c.keywordDifficultyURL())
	if !ok {
		return nil, fmt.Errorf("%w: challenge solve failed for keyword %q", credential.ErrUnavailable, keyword)
	}

	body, err := c.postJSON(ctx, "/stGetFreeSerpOverviewForKeywordDifficultyChecker", map[string]any{
		"captcha": token,
		"country": country,
		"keyword": keyword,
	})
	if err != nil {
		return nil, err
	}

	payload, err := requireOk(body)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Difficulty float64 `json:"difficulty"`
		Shortage   float64 `json:"shortage"`
		LastUpdate string  `json:"lastUpdate"`
		Serp       struct {
			Results []serpEntry `json:"results"`
		} `json:"serp"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponseFormat, err)
	}

	report := &DifficultyReport{
		Difficulty: raw.Difficulty,
		Shortage:   raw.Shortage,
		LastUpdate: raw.LastUpdate,
		Serp:       []SerpResult{},
	}

	// Keep only organic entries that carry a link; everything else
	// (ads, snippets, unrecognized variants) is skipped. Input order is
	// already by position and is preserved.
	for _, entry := range raw.Serp.Results {
		tag, content, err := decodeTagged(entry.Content)
		if err != nil {
			c.logger.Debug("skipping SERP entry with unrecognized content shape",
				zap.Int("pos", entry.Pos),
			)
			continue
		}
		if tag != "organic" {
			continue
		}

		var organic organicPayload
		if err := json.Unmarshal(content, &organic); err != nil || organic.Link == nil {
			continue
		}

		report.Serp = append(report.Serp, SerpResult{
			Title:    organic.Link.Title,
			URL:      organic.Link.URL,
			Position: entry.Pos,
			Metrics:  organic.Metrics,
		})
	}

	return report, nil
}
