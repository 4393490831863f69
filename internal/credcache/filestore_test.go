package credcache_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mrgoonie/seo-insights-mcp-server/internal/credcache"
	"go.uber.org/zap"
)

func futureStamp() string {
	return time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
}

func pastStamp() string {
	return time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
}

func newStore(t *testing.T) (*credcache.FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.json")
	return credcache.NewFileStore(path, zap.NewNop()), path
}

func TestLoad_missingFile(t *testing.T) {
	store, _ := newStore(t)

	if _, ok := store.Load("example.com"); ok {
		t.Error("expected miss on missing cache file")
	}
}

func TestLoad_corruptFile(t *testing.T) {
	store, path := newStore(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := store.Load("example.com"); ok {
		t.Error("expected miss on corrupt cache file")
	}
}

func TestSaveLoad_roundTrip(t *testing.T) {
	store, _ := newStore(t)

	saved := &credcache.Credential{
		Signature:    "sig-abc",
		ValidUntil:   futureStamp(),
		OverviewData: json.RawMessage(`{"domainRating":42}`),
		Timestamp:    time.Now().UTC(),
	}
	if !store.Save("example.com", saved) {
		t.Fatal("Save returned false")
	}

	got, ok := store.Load("example.com")
	if !ok {
		t.Fatal("expected cache hit after save")
	}
	if got.Signature != "sig-abc" {
		t.Errorf("Signature: got %q", got.Signature)
	}
	if got.Subject != "example.com" {
		t.Errorf("Subject: got %q", got.Subject)
	}
	if string(got.OverviewData) != `{"domainRating":42}` {
		t.Errorf("OverviewData: got %s", got.OverviewData)
	}
}

func TestLoad_expiredEntryIsMiss(t *testing.T) {
	store, _ := newStore(t)

	store.Save("example.com", &credcache.Credential{
		Signature:  "sig-old",
		ValidUntil: pastStamp(),
		Timestamp:  time.Now().UTC(),
	})

	if _, ok := store.Load("example.com"); ok {
		t.Error("expired entry must be treated as a miss")
	}
}

func TestLoad_unparsableValidUntilIsMiss(t *testing.T) {
	store, _ := newStore(t)

	store.Save("example.com", &credcache.Credential{
		Signature:  "sig",
		ValidUntil: "not-a-timestamp",
	})

	if _, ok := store.Load("example.com"); ok {
		t.Error("unparsable validUntil must be treated as a miss")
	}
}

func TestSave_mergesExistingSubjects(t *testing.T) {
	store, _ := newStore(t)

	store.Save("a.com", &credcache.Credential{Signature: "sig-a", ValidUntil: futureStamp()})
	store.Save("b.com", &credcache.Credential{Signature: "sig-b", ValidUntil: futureStamp()})

	if _, ok := store.Load("a.com"); !ok {
		t.Error("a.com entry lost after saving b.com")
	}
	if _, ok := store.Load("b.com"); !ok {
		t.Error("b.com entry missing")
	}
}

func TestSave_overwritesSubjectWholesale(t *testing.T) {
	store, _ := newStore(t)

	store.Save("a.com", &credcache.Credential{Signature: "sig-1", ValidUntil: futureStamp()})
	store.Save("a.com", &credcache.Credential{Signature: "sig-2", ValidUntil: futureStamp()})

	got, ok := store.Load("a.com")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Signature != "sig-2" {
		t.Errorf("expected replaced entry, got signature %q", got.Signature)
	}
}

func TestSave_mergesOverCorruptFile(t *testing.T) {
	store, path := newStore(t)
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !store.Save("a.com", &credcache.Credential{Signature: "sig", ValidUntil: futureStamp()}) {
		t.Fatal("Save over corrupt file should succeed")
	}
	if _, ok := store.Load("a.com"); !ok {
		t.Error("expected hit after saving over corrupt file")
	}
}

func TestSave_createsDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.json")
	store := credcache.NewFileStore(path, zap.NewNop())

	if !store.Save("a.com", &credcache.Credential{Signature: "sig", ValidUntil: futureStamp()}) {
		t.Fatal("Save should create missing directories")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("cache file not written: %v", err)
	}
}

func TestMemoryStore_expiry(t *testing.T) {
	store := credcache.NewMemoryStore()

	store.Save("a.com", &credcache.Credential{Signature: "sig", ValidUntil: pastStamp()})
	if _, ok := store.Load("a.com"); ok {
		t.Error("expired entry must be a miss")
	}

	store.Save("a.com", &credcache.Credential{Signature: "sig", ValidUntil: futureStamp()})
	if _, ok := store.Load("a.com"); !ok {
		t.Error("valid entry must be a hit")
	}
}
