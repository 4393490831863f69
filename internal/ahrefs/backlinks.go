package ahrefs

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Backlink is one normalized backlink row. Fields missing from the raw
// item default to their zero values.
type Backlink struct {
	Anchor       string  `json:"anchor"`
	DomainRating float64 `json:"domainRating"`
	Title        string  `json:"title"`
	URLFrom      string  `json:"urlFrom"`
	URLTo        string  `json:"urlTo"`
	Edu          bool    `json:"edu"`
	Gov          bool    `json:"gov"`
}

// BacklinksReport combines the overview payload captured at mint time
// with the normalized top-backlink rows.
type BacklinksReport struct {
	Overview  json.RawMessage `json:"overview"`
	Backlinks []Backlink      `json:"backlinks"`
}

// Backlinks fetches the backlink profile for domain. It obtains a signed
// credential (served from the cache when still valid) and replays the
// credential's signature and validity window to the list endpoint.
func (c *Client) Backlinks(ctx context.Context, domain string) (*BacklinksReport, error) {
	cred, err := c.creds.Obtain(ctx, domain, c.backlinkCheckerURL(domain))
	if err != nil {
		return nil, err
	}

	// The signed input must echo validUntil exactly as issued — the
	// signature covers it. The list endpoint expects a trailing slash
	// on the domain.
	payload := map[string]any{
		"reportType": "TopBacklinks",
		"signedInput": map[string]any{
			"signature": cred.Signature,
			"input": map[string]any{
				"validUntil": cred.ValidUntil,
				"mode":       "subdomains",
				"url":        domain + "/",
			},
		},
	}

	body, err := c.postJSON(ctx, "/stGetFreeBacklinksList", payload)
	if err != nil {
		return nil, err
	}

	overview := cred.OverviewData
	if overview == nil {
		overview = json.RawMessage("null")
	}
	return &BacklinksReport{
		Overview:  overview,
		Backlinks: c.normalizeBacklinks(body, domain),
	}, nil
}

// normalizeBacklinks extracts the backlink rows from the list response.
// Partial or missing sub-payloads are expected upstream noise, so any
// shape mismatch yields an empty list rather than an error.
func (c *Client) normalizeBacklinks(body []byte, domain string) []Backlink {
	var elems []json.RawMessage
	if err := json.Unmarshal(body, &elems); err != nil || len(elems) < 2 {
		c.logger.Debug("backlinks response is not a tagged array, returning empty list",
			zap.String("domain", domain),
		)
		return []Backlink{}
	}

	var payload struct {
		TopBacklinks struct {
			Backlinks []Backlink `json:"backlinks"`
		} `json:"topBacklinks"`
	}
	if err := json.Unmarshal(elems[1], &payload); err != nil {
		c.logger.Debug("backlinks payload malformed, returning empty list",
			zap.String("domain", domain),
			zap.Error(err),
		)
		return []Backlink{}
	}
	if payload.TopBacklinks.Backlinks == nil {
		return []Backlink{}
	}
	return payload.TopBacklinks.Backlinks
}
