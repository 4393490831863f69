package ahrefs_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mrgoonie/seo-insights-mcp-server/internal/ahrefs"
	"go.uber.org/zap"
)

func newDifficultyClient(srvURL string) *ahrefs.Client {
	return ahrefs.NewClient(&stubCreds{}, &stubTokens{token: "tok", ok: true}, zap.NewNop(),
		ahrefs.WithBaseURL(srvURL))
}

func difficultyServer(t *testing.T, response any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stGetFreeSerpOverviewForKeywordDifficultyChecker" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(response)
	}))
}

func TestKeywordDifficulty_success(t *testing.T) {
	srv := difficultyServer(t, []any{"Ok", map[string]any{
		"difficulty": 42.0,
		"shortage":   3.0,
		"lastUpdate": "2026-08-01T00:00:00Z",
		"serp": map[string]any{
			"results": []map[string]any{
				{
					"pos": 1,
					"content": []any{"organic", map[string]any{
						"link": map[string]any{"title": "First", "url": "https://one.example/"},
						"metrics": map[string]any{
							"domainRating": 90.0,
							"urlRating":    45.0,
							"traffic":      1200.0,
							"keywords":     300.0,
							"topKeyword":   "first result",
							"topVolume":    5400.0,
						},
					}},
				},
				{
					"pos":     2,
					"content": []any{"ad", map[string]any{"link": map[string]any{"url": "https://ad.example/"}}},
				},
				{
					"pos":     3,
					"content": []any{"organic", map[string]any{}}, // no link → skipped
				},
				{
					"pos": 4,
					"content": []any{"organic", map[string]any{
						"link": map[string]any{"title": "Fourth", "url": "https://four.example/"},
					}},
				},
			},
		},
	}})
	defer srv.Close()

	c := newDifficultyClient(srv.URL)
	report, err := c.KeywordDifficulty(context.Background(), "golang", "")
	if err != nil {
		t.Fatalf("KeywordDifficulty: %v", err)
	}

	if report.Difficulty != 42 || report.Shortage != 3 {
		t.Errorf("scores: %+v", report)
	}
	if len(report.Serp) != 2 {
		t.Fatalf("expected 2 organic results with links, got %d", len(report.Serp))
	}

	first := report.Serp[0]
	if first.Title != "First" || first.URL != "https://one.example/" || first.Position != 1 {
		t.Errorf("first result: %+v", first)
	}
	if first.Metrics == nil || first.Metrics.DomainRating != 90 || first.Metrics.TopKeyword != "first result" {
		t.Errorf("first metrics: %+v", first.Metrics)
	}

	fourth := report.Serp[1]
	if fourth.Position != 4 || fourth.Metrics != nil {
		t.Errorf("metrics-less result: %+v", fourth)
	}
}

func TestKeywordDifficulty_nonOkTagIsHardError(t *testing.T) {
	srv := difficultyServer(t, []any{"Err", map[string]any{"reason": "rate limited"}})
	defer srv.Close()

	c := newDifficultyClient(srv.URL)
	_, err := c.KeywordDifficulty(context.Background(), "golang", "us")
	if !errors.Is(err, ahrefs.ErrInvalidResponseFormat) {
		t.Errorf("expected ErrInvalidResponseFormat, got %v", err)
	}
}

func TestKeywordDifficulty_nonArrayIsHardError(t *testing.T) {
	srv := difficultyServer(t, map[string]any{"difficulty": 42})
	defer srv.Close()

	c := newDifficultyClient(srv.URL)
	_, err := c.KeywordDifficulty(context.Background(), "golang", "us")
	if !errors.Is(err, ahrefs.ErrInvalidResponseFormat) {
		t.Errorf("expected ErrInvalidResponseFormat, got %v", err)
	}
}

func TestKeywordDifficulty_unrecognizedContentShapeSkipped(t *testing.T) {
	srv := difficultyServer(t, []any{"Ok", map[string]any{
		"difficulty": 10.0,
		"serp": map[string]any{
			"results": []map[string]any{
				{"pos": 1, "content": map[string]any{"not": "tagged"}},
				{"pos": 2, "content": []any{"organic", map[string]any{
					"link": map[string]any{"title": "Ok", "url": "https://ok.example/"},
				}}},
			},
		},
	}})
	defer srv.Close()

	c := newDifficultyClient(srv.URL)
	report, err := c.KeywordDifficulty(context.Background(), "golang", "us")
	if err != nil {
		t.Fatalf("KeywordDifficulty: %v", err)
	}
	if len(report.Serp) != 1 || report.Serp[0].Position != 2 {
		t.Errorf("expected the malformed entry to be skipped, got %+v", report.Serp)
	}
}
