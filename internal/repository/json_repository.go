package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bassista/go_weightsync/internal/config"
	"github.com/bassista/go_weightsync/internal/logger"
	"github.com/go-playground/validator/v10"
)

const (
	filePerms = 0o600
	dirPerms  = 0o700
)

// JSONTokenStore keeps one JSON token file per provider inside dir and falls
// back to seed refresh tokens when no cache file exists yet.
type JSONTokenStore struct {
	dir       string
	seeds     map[Provider]string
	validator *validator.Validate
	mu        sync.Mutex
}

// NewJSONTokenStore creates a store rooted at dir. seeds maps providers to the
// refresh tokens configured for first-run bootstrap; missing entries are fine.
func NewJSONTokenStore(dir string, seeds map[Provider]string) (*JSONTokenStore, error) {
	if dir == "" {
		return nil, errors.New("token cache directory is required")
	}

	copied := make(map[Provider]string, len(seeds))
	for p, tok := range seeds {
		if tok != "" {
			copied[p] = tok
		}
	}

	return &JSONTokenStore{dir: dir, seeds: copied, validator: validator.New()}, nil
}

// Path returns the cache file for provider.
func (s *JSONTokenStore) Path(provider Provider) string {
	return filepath.Join(s.dir, string(provider)+"-cache.json")
}

// Load returns the cached record, or nil when the file is missing or
// unreadable. Failures are logged, never returned.
func (s *JSONTokenStore) Load(provider Provider) *TokenRecord {
	rec, err := s.read(provider)
	if err != nil {
		logger.WithComponent("token-store").Warnf("ignoring %s token cache: %v", provider, err)
		return nil
	}
	return rec
}

func (s *JSONTokenStore) read(provider Provider) (*TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path(provider))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var rec TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	// Files written before the provider field existed carry only the tokens.
	if rec.Provider == "" {
		rec.Provider = provider
	}
	if rec.Provider != provider {
		return nil, fmt.Errorf("token file belongs to %q", rec.Provider)
	}
	if err := s.validator.Struct(&rec); err != nil {
		return nil, fmt.Errorf("validate token file: %w", err)
	}

	return &rec, nil
}

// Save validates and writes the record atomically (temp file + rename).
func (s *JSONTokenStore) Save(provider Provider, record *TokenRecord) error {
	if record == nil {
		return errors.New("token record is nil")
	}
	if record.Provider != provider {
		return fmt.Errorf("token record for %q cannot be saved as %q", record.Provider, provider)
	}
	if err := s.validator.Struct(record); err != nil {
		return fmt.Errorf("validate before save: %w", err)
	}

	payload, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, dirPerms); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}

	target := s.Path(provider)
	tmpFile, err := os.CreateTemp(s.dir, filepath.Base(target)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}()

	if err := tmpFile.Chmod(filePerms); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if _, err := tmpFile.Write(payload); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), target); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}

	logger.WithComponent("token-store").Debugf("saved %s tokens to %s", provider, target)
	return nil
}

// ResolveRefreshToken prefers the cached refresh token over the seed one.
func (s *JSONTokenStore) ResolveRefreshToken(provider Provider) (string, error) {
	log := logger.WithComponent("token-store")

	if rec := s.Load(provider); rec != nil && rec.RefreshToken != "" {
		log.Debugf("using cached %s refresh token", provider)
		return rec.RefreshToken, nil
	}

	if seed := s.seeds[provider]; seed != "" {
		log.Debugf("using %s refresh token from environment", provider)
		return seed, nil
	}

	return "", &config.ConfigurationError{
		Key:    provider.String(),
		Reason: "no refresh token available for provider",
	}
}
