package ahrefs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mrgoonie/seo-insights-mcp-server/internal/credential"
)

// Group labels for the two idea result groups, preserved in output order.
const (
	labelKeywordIdeas  = "keyword ideas"
	labelQuestionIdeas = "question ideas"
)

// Per-field defaults applied when the raw idea omits a value.
const (
	defaultKeyword   = "No keyword"
	defaultCountry   = "-"
	defaultUpdatedAt = "-"
	defaultUnknown   = "Unknown"
)

// IdeaValue is one normalized keyword suggestion.
type IdeaValue struct {
	Keyword    string `json:"keyword"`
	Country    string `json:"country"`
	Difficulty string `json:"difficulty"`
	Volume     string `json:"volume"`
	UpdatedAt  string `json:"updatedAt"`
}

// KeywordIdea pairs a suggestion with the group it came from.
type KeywordIdea struct {
	Label string    `json:"label"`
	Value IdeaValue `json:"value"`
}

// rawIdea mirrors the platform's idea row.
type rawIdea struct {
	Keyword         string `json:"keyword"`
	Country         string `json:"country"`
	DifficultyLabel string `json:"difficultyLabel"`
	VolumeLabel     string `json:"volumeLabel"`
	UpdatedAt       string `json:"updatedAt"`
}

// KeywordIdeas fetches keyword suggestions for a seed keyword. It solves
// a fresh challenge per call: the ideas endpoint is not backed by the
// reusable backlink signature, so the credential cache is not consulted.
// Both result groups are concatenated, "keyword ideas" first, each group
// in the order received.
func (c *Client) KeywordIdeas(ctx context.Context, keyword, country, searchEngine string) ([]KeywordIdea, error) {
	if country == "" {
		country = "us"
	}
	if searchEngine == "" {
		searchEngine = "Google"
	}

	token, ok := c.solver.Solve(ctx, c.keywordGeneratorURL(country))
	if !ok {
		return nil, fmt.Errorf("%w: challenge solve failed for keyword %q", credential.ErrUnavailable, keyword)
	}

	payload := map[string]any{
		"withQuestionIdeas": true,
		"captcha":           token,
		"searchEngine":      searchEngine,
		"country":           country,
		"keyword":           []any{"Some", keyword},
	}
	body, err := c.postJSON(ctx, "/stGetFreeKeywordIdeas", payload)
	if err != nil {
		return nil, err
	}

	return normalizeKeywordIdeas(body), nil
}

// normalizeKeywordIdeas flattens the two idea groups into one ordered
// list. Shape mismatches degrade to empty groups, not errors.
func normalizeKeywordIdeas(body []byte) []KeywordIdea {
	ideas := []KeywordIdea{}

	var elems []json.RawMessage
	if err := json.Unmarshal(body, &elems); err != nil || len(elems) < 2 {
		return ideas
	}

	var payload struct {
		AllIdeas struct {
			Results []rawIdea `json:"results"`
		} `json:"allIdeas"`
		QuestionIdeas struct {
			Results []rawIdea `json:"results"`
		} `json:"questionIdeas"`
	}
	if err := json.Unmarshal(elems[1], &payload); err != nil {
		return ideas
	}

	for _, raw := range payload.AllIdeas.Results {
		ideas = append(ideas, KeywordIdea{Label: labelKeywordIdeas, Value: normalizeIdea(raw)})
	}
	for _, raw := range payload.QuestionIdeas.Results {
		ideas = append(ideas, KeywordIdea{Label: labelQuestionIdeas, Value: normalizeIdea(raw)})
	}
	return ideas
}

func normalizeIdea(raw rawIdea) IdeaValue {
	v := IdeaValue{
		Keyword:    raw.Keyword,
		Country:    raw.Country,
		Difficulty: raw.DifficultyLabel,
		Volume:     raw.VolumeLabel,
		UpdatedAt:  raw.UpdatedAt,
	}
	if v.Keyword == "" {
		v.Keyword = defaultKeyword
	}
	if v.Country == "" {
		v.Country = defaultCountry
	}
	if v.Difficulty == "" {
		v.Difficulty = defaultUnknown
	}
	if v.Volume == "" {
		v.Volume = defaultUnknown
	}
	if v.UpdatedAt == "" {
		v.UpdatedAt = defaultUpdatedAt
	}
	return v
}
