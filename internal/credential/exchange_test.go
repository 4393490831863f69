package credential_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mrgoonie/seo-insights-mcp-server/internal/credcache"
	"github.com/mrgoonie/seo-insights-mcp-server/internal/credential"
	"go.uber.org/zap"
)

func overviewServer(t *testing.T, respond func(w http.ResponseWriter, body map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stGetFreeBacklinksOverview" {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		respond(w, body)
	}))
}

func newExchange(srvURL string, store credcache.Store) *credential.Exchange {
	return credential.NewExchange(store, zap.NewNop(), credential.WithExchangeBaseURL(srvURL))
}

func TestMint_success(t *testing.T) {
	var gotCaptcha, gotMode string
	srv := overviewServer(t, func(w http.ResponseWriter, body map[string]any) {
		gotCaptcha, _ = body["captcha"].(string)
		gotMode, _ = body["mode"].(string)
		json.NewEncoder(w).Encode([]any{"Ok", map[string]any{
			"signedInput": map[string]any{
				"signature": "sig-123",
				"input":     map[string]any{"validUntil": "2099-01-01T00:00:00Z"},
			},
			"data": map[string]any{"domainRating": 71},
		}})
	})
	defer srv.Close()

	store := credcache.NewMemoryStore()
	cred, ok := newExchange(srv.URL, store).Mint(context.Background(), "tok-1", "example.com")
	if !ok {
		t.Fatal("expected mint to succeed")
	}
	if gotCaptcha != "tok-1" || gotMode != "subdomains" {
		t.Errorf("request payload: captcha=%q mode=%q", gotCaptcha, gotMode)
	}
	if cred.Signature != "sig-123" {
		t.Errorf("Signature: got %q", cred.Signature)
	}
	if cred.ValidUntil != "2099-01-01T00:00:00Z" {
		t.Errorf("ValidUntil: got %q", cred.ValidUntil)
	}

	// Minting must persist to the cache before returning.
	if _, ok := store.Load("example.com"); !ok {
		t.Error("credential not persisted to cache")
	}
}

func TestMint_missingSignature(t *testing.T) {
	srv := overviewServer(t, func(w http.ResponseWriter, _ map[string]any) {
		json.NewEncoder(w).Encode([]any{"Ok", map[string]any{
			"signedInput": map[string]any{"input": map[string]any{"validUntil": "2099-01-01T00:00:00Z"}},
		}})
	})
	defer srv.Close()

	if _, ok := newExchange(srv.URL, credcache.NewMemoryStore()).Mint(context.Background(), "t", "example.com"); ok {
		t.Error("expected failure when signature is missing")
	}
}

func TestMint_missingValidUntil(t *testing.T) {
	srv := overviewServer(t, func(w http.ResponseWriter, _ map[string]any) {
		json.NewEncoder(w).Encode([]any{"Ok", map[string]any{
			"signedInput": map[string]any{"signature": "sig"},
		}})
	})
	defer srv.Close()

	if _, ok := newExchange(srv.URL, credcache.NewMemoryStore()).Mint(context.Background(), "t", "example.com"); ok {
		t.Error("expected failure when validUntil is missing")
	}
}

func TestMint_notAnArray(t *testing.T) {
	srv := overviewServer(t, func(w http.ResponseWriter, _ map[string]any) {
		json.NewEncoder(w).Encode(map[string]any{"error": "nope"})
	})
	defer srv.Close()

	if _, ok := newExchange(srv.URL, credcache.NewMemoryStore()).Mint(context.Background(), "t", "example.com"); ok {
		t.Error("expected failure for non-array response")
	}
}

func TestMint_non2xx(t *testing.T) {
	srv := overviewServer(t, func(w http.ResponseWriter, _ map[string]any) {
		http.Error(w, "blocked", http.StatusForbidden)
	})
	defer srv.Close()

	if _, ok := newExchange(srv.URL, credcache.NewMemoryStore()).Mint(context.Background(), "t", "example.com"); ok {
		t.Error("expected failure for non-2xx status")
	}
}
