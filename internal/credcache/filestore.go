package credcache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

// DefaultPath returns the default cache file location,
// ~/.seo-insights/cache.json. It falls back to a relative path when the
// home directory cannot be determined.
func DefaultPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return filepath.Join(".seo-insights", "cache.json")
	}
	return filepath.Join(home, ".seo-insights", "cache.json")
}

// FileStore persists credentials in one JSON file keyed by subject.
//
// The file is read then rewritten without cross-process locking, so two
// processes racing on the same subject may lose an update. That is an
// accepted limitation: the loser simply re-mints on its next call.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a FileStore writing to path. The parent directory
// is created on first save.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load returns the cached credential for subject if the cache file
// exists, parses, has an entry for subject, and that entry is still
// valid. A missing or corrupt file is treated as an empty cache, never
// as an error.
func (s *FileStore) Load(subject string) (*Credential, bool) {
	entries := s.readAll()
	cred, ok := entries[subject]
	if !ok {
		return nil, false
	}
	if !cred.Valid(time.Now()) {
		s.logger.Debug("cached credential expired",
			zap.String("subject", subject),
			zap.String("valid_until", cred.ValidUntil),
		)
		return nil, false
	}
	cred.Subject = subject
	return cred, true
}

// Save merges cred into whatever was previously readable and rewrites
// the whole file atomically. Returns false (and logs) on failure.
func (s *FileStore) Save(subject string, cred *Credential) bool {
	entries := s.readAll()
	entries[subject] = cred

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		s.logger.Warn("marshal credential cache", zap.Error(err))
		return false
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Warn("create cache directory",
			zap.String("path", filepath.Dir(s.path)),
			zap.Error(err),
		)
		return false
	}

	// Write to a temp file in the same directory, then rename over the
	// target so readers never observe a partial file.
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".cache-*.json")
	if err != nil {
		s.logger.Warn("create temp cache file", zap.Error(err))
		return false
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		s.logger.Warn("write cache file", zap.Error(err))
		return false
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		s.logger.Warn("close cache file", zap.Error(err))
		return false
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		s.logger.Warn("rename cache file", zap.String("path", s.path), zap.Error(err))
		return false
	}
	return true
}

// readAll parses the cache file into a subject→credential map. Any
// failure (missing file, bad JSON) yields an empty map.
func (s *FileStore) readAll() map[string]*Credential {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read credential cache", zap.String("path", s.path), zap.Error(err))
		}
		return map[string]*Credential{}
	}
	var entries map[string]*Credential
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("credential cache is corrupt, treating as empty",
			zap.String("path", s.path),
			zap.Error(err),
		)
		return map[string]*Credential{}
	}
	if entries == nil {
		entries = map[string]*Credential{}
	}
	return entries
}
