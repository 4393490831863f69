package ahrefs_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mrgoonie/seo-insights-mcp-server/internal/ahrefs"
	"github.com/mrgoonie/seo-insights-mcp-server/internal/credential"
	"go.uber.org/zap"
)

func newIdeasClient(srvURL string, tokens *stubTokens) *ahrefs.Client {
	return ahrefs.NewClient(&stubCreds{}, tokens, zap.NewNop(), ahrefs.WithBaseURL(srvURL))
}

func TestKeywordIdeas_groupsOrderedAndNormalized(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stGetFreeKeywordIdeas" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&gotPayload)
		json.NewEncoder(w).Encode([]any{"Ok", map[string]any{
			"allIdeas": map[string]any{
				"results": []map[string]any{
					{"keyword": "a", "country": "us", "difficultyLabel": "Easy", "volumeLabel": "1K", "updatedAt": "2026-01-01"},
					{}, // fully defaulted
				},
			},
			"questionIdeas": map[string]any{
				"results": []map[string]any{
					{"keyword": "b"},
				},
			},
		}})
	}))
	defer srv.Close()

	tokens := &stubTokens{token: "tok", ok: true}
	c := newIdeasClient(srv.URL, tokens)

	ideas, err := c.KeywordIdeas(context.Background(), "seed", "", "")
	if err != nil {
		t.Fatalf("KeywordIdeas: %v", err)
	}
	if len(ideas) != 3 {
		t.Fatalf("expected 3 ideas, got %d", len(ideas))
	}

	// All "keyword ideas" entries precede all "question ideas" entries.
	if ideas[0].Label != "keyword ideas" || ideas[1].Label != "keyword ideas" || ideas[2].Label != "question ideas" {
		t.Errorf("group order wrong: %q %q %q", ideas[0].Label, ideas[1].Label, ideas[2].Label)
	}

	if ideas[0].Value.Keyword != "a" || ideas[0].Value.Difficulty != "Easy" || ideas[0].Value.Volume != "1K" {
		t.Errorf("first idea not normalized: %+v", ideas[0].Value)
	}

	defaulted := ideas[1].Value
	if defaulted.Keyword != "No keyword" || defaulted.Country != "-" ||
		defaulted.Difficulty != "Unknown" || defaulted.Volume != "Unknown" || defaulted.UpdatedAt != "-" {
		t.Errorf("defaults not applied: %+v", defaulted)
	}

	if ideas[2].Value.Keyword != "b" {
		t.Errorf("question idea keyword: got %q", ideas[2].Value.Keyword)
	}

	// Request contract: defaults filled in, seed keyword tagged "Some".
	if gotPayload["country"] != "us" || gotPayload["searchEngine"] != "Google" {
		t.Errorf("defaults not sent: country=%v searchEngine=%v", gotPayload["country"], gotPayload["searchEngine"])
	}
	if gotPayload["withQuestionIdeas"] != true || gotPayload["captcha"] != "tok" {
		t.Errorf("payload: %+v", gotPayload)
	}
	kw := gotPayload["keyword"].([]any)
	if kw[0] != "Some" || kw[1] != "seed" {
		t.Errorf("keyword: got %v", kw)
	}
}

func TestKeywordIdeas_malformedPayloadYieldsEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"just a string"`))
	}))
	defer srv.Close()

	c := newIdeasClient(srv.URL, &stubTokens{token: "tok", ok: true})
	ideas, err := c.KeywordIdeas(context.Background(), "seed", "us", "Google")
	if err != nil {
		t.Fatalf("KeywordIdeas: %v", err)
	}
	if len(ideas) != 0 {
		t.Errorf("expected empty list, got %d", len(ideas))
	}
}

func TestKeywordIdeas_solveFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no platform call expected when solve fails")
	}))
	defer srv.Close()

	c := newIdeasClient(srv.URL, &stubTokens{ok: false})
	_, err := c.KeywordIdeas(context.Background(), "seed", "us", "Google")
	if !errors.Is(err, credential.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestKeywordIdeas_solvesFreshChallengePerCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]any{"Ok", map[string]any{}})
	}))
	defer srv.Close()

	tokens := &stubTokens{token: "tok", ok: true}
	c := newIdeasClient(srv.URL, tokens)

	c.KeywordIdeas(context.Background(), "seed", "us", "Google")
	c.KeywordIdeas(context.Background(), "seed", "us", "Google")

	if tokens.solves != 2 {
		t.Errorf("expected one solve per call, got %d", tokens.solves)
	}
}
