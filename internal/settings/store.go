// Package settings persists the user Settings document as YAML in the data
// directory and keeps a short lived in-memory copy for the hot read path.
package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"gopkg.in/yaml.v2"

	"finanze/internal/core"
	"finanze/internal/log"
)

const (
	cacheKey = "settings"
	cacheTTL = 30 * time.Second
)

// Store reads and writes the settings file.
type Store struct {
	path   string
	mu     sync.Mutex
	cache  *ristretto.Cache
	logger *log.Logger
}

func NewStore(path string, logger *log.Logger) (*Store, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e3,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("settings cache: %w", err)
	}
	return &Store{
		path:   path,
		cache:  cache,
		logger: logger.WithComponent(log.ComponentSettings),
	}, nil
}

// Load returns the current settings, creating the default file when none
// exists yet.
func (s *Store) Load(ctx context.Context) (core.Settings, error) {
	if v, ok := s.cache.Get(cacheKey); ok {
		if cfg, ok := v.(core.Settings); ok {
			return cfg, nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.InfoContext(ctx, "Settings file not found, writing defaults", "path", s.path)
		cfg := core.DefaultSettings()
		if err := s.write(cfg); err != nil {
			return core.Settings{}, err
		}
		s.remember(cfg)
		return cfg, nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("read settings: %w", err)
	}

	var cfg core.Settings
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return core.Settings{}, fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	if cfg.Fetch.UpdateCooldown == 0 {
		cfg.Fetch.UpdateCooldown = core.DefaultUpdateCooldown
	}
	s.remember(cfg)
	return cfg, nil
}

// Save validates and replaces the settings file.
func (s *Store) Save(ctx context.Context, cfg core.Settings) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(cfg); err != nil {
		return err
	}
	s.cache.Del(cacheKey)
	s.cache.Wait()
	s.logger.InfoContext(ctx, "Settings saved", "path", s.path)
	return nil
}

func (s *Store) remember(cfg core.Settings) {
	s.cache.SetWithTTL(cacheKey, cfg, 1, cacheTTL)
	s.cache.Wait()
}

// write replaces the file through a rename so readers never see a partial
// document.
func (s *Store) write(cfg core.Settings) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// Close releases the cache goroutines.
func (s *Store) Close() {
	s.cache.Close()
}
