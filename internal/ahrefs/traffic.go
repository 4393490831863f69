package ahrefs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mrgoonie/seo-insights-mcp-server/internal/credential"
)

// TrafficAverages carries the monthly traffic estimates. The cost key
// keeps the platform's spelling.
type TrafficAverages struct {
	TrafficMonthlyAvg float64 `json:"trafficMonthlyAvg"`
	CostMonthlyAvg    float64 `json:"costMontlyAvg"`
}

// TrafficReport is the normalized traffic-overview response. List fields
// absent upstream default to empty lists, numeric fields to 0.
type TrafficReport struct {
	TrafficHistory []json.RawMessage `json:"traffic_history"`
	Traffic        TrafficAverages   `json:"traffic"`
	TopPages       []json.RawMessage `json:"top_pages"`
	TopCountries   []json.RawMessage `json:"top_countries"`
	TopKeywords    []json.RawMessage `json:"top_keywords"`
}

// Traffic fetches the traffic overview for a domain or URL. A fresh
// challenge is solved per call. The endpoint takes its whole request
// payload serialized as one query-string value, and the response must
// carry the "Ok" tag or the call fails with ErrInvalidResponseFormat.
func (c *Client) Traffic(ctx context.Context, target, mode, country string) (*TrafficReport, error) {
	if mode == "" {
		mode = "subdomains"
	}
	if country == "" {
		country = "None"
	}

	token, ok := c.solver.Solve(ctx, c.trafficCheckerURL(target, mode))
	if !ok {
		return nil, fmt.Errorf("%w: challenge solve failed for %q", credential.ErrUnavailable, target)
	}

	body, err := c.getWithInput(ctx, "/stGetFreeTrafficOverview", map[string]any{
		"captcha":  token,
		"country":  country,
		"protocol": "None",
		"mode":     mode,
		"url":      target,
	})
	if err != nil {
		return nil, err
	}

	payload, err := requireOk(body)
	if err != nil {
		return nil, err
	}

	var raw struct {
		TrafficHistory []json.RawMessage `json:"traffic_history"`
		Traffic        TrafficAverages   `json:"traffic"`
		TopPages       []json.RawMessage `json:"top_pages"`
		TopCountries   []json.RawMessage `json:"top_countries"`
		TopKeywords    []json.RawMessage `json:"top_keywords"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponseFormat, err)
	}

	report := &TrafficReport{
		TrafficHistory: raw.TrafficHistory,
		Traffic:        raw.Traffic,
		TopPages:       raw.TopPages,
		TopCountries:   raw.TopCountries,
		TopKeywords:    raw.TopKeywords,
	}
	if report.TrafficHistory == nil {
		report.TrafficHistory = []json.RawMessage{}
	}
	if report.TopPages == nil {
		report.TopPages = []json.RawMessage{}
	}
	if report.TopCountries == nil {
		report.TopCountries = []json.RawMessage{}
	}
	if report.TopKeywords == nil {
		report.TopKeywords = []json.RawMessage{}
	}
	return report, nil
}
