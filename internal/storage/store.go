package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"repo-pulse/internal/history"
)

// Store composes a durable backend with an in-memory copy.
// Reads prefer the durable backend and fall back to the cached copy; writes
// always land in memory first so the latest data survives for the rest of the
// process even when the durable write fails.
type Store struct {
	primary     Backend
	cache       *MemoryBackend
	fallbackDir string
	logger      *zap.Logger
	now         func() time.Time
	// corrupt is set while the durable document fails to decode; saves then
	// leave it in place for manual recovery.
	corrupt atomic.Bool
}

// NewStore wraps primary. A nil primary gives a memory-only store.
// fallbackDir receives diagnostic copies when primary is read-only; empty means os.TempDir().
func NewStore(primary Backend, fallbackDir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fallbackDir == "" {
		fallbackDir = os.TempDir()
	}
	return &Store{
		primary:     primary,
		cache:       NewMemoryBackend(),
		fallbackDir: fallbackDir,
		logger:      logger,
		now:         time.Now,
	}
}

// Load returns the persisted History. It never fails: when the document is
// absent, unreadable or empty it returns the cached copy, or an empty History.
// A corrupt document is logged as an error and later saves leave it untouched.
func (s *Store) Load(ctx context.Context) history.History {
	if s.primary != nil {
		h, err := s.primary.Load(ctx)
		s.corrupt.Store(errors.Is(err, ErrCorrupt))
		switch {
		case err == nil:
			_ = s.cache.Save(ctx, h)
			return h
		case errors.Is(err, ErrCorrupt):
			s.logger.Error("history document is corrupt, using in-memory copy", zap.Error(err))
		default:
			s.logger.Warn("history load degraded, using in-memory copy", zap.Error(err))
		}
	}
	if h, err := s.cache.Load(ctx); err == nil {
		return h
	}
	return history.New()
}

// Save records h in memory and then attempts a durable write.
// A failed durable write is logged and never returned to the caller.
func (s *Store) Save(ctx context.Context, h history.History) {
	_ = s.cache.Save(ctx, h)
	if s.primary == nil {
		return
	}
	if s.corrupt.Load() {
		s.logger.Error("durable history is corrupt, not overwriting it")
		if path, err := s.writeFallback(h); err == nil {
			s.logger.Warn("history written to fallback location", zap.String("path", path))
		}
		return
	}
	err := s.primary.Save(ctx, h)
	if err == nil {
		return
	}
	s.logger.Warn("history save failed, data kept in memory only", zap.Error(err))
	if !isReadOnly(err) {
		return
	}
	path, ferr := s.writeFallback(h)
	if ferr != nil {
		s.logger.Warn("fallback history write failed", zap.Error(ferr))
		return
	}
	s.logger.Warn("history written to fallback location", zap.String("path", path))
}

func (s *Store) writeFallback(h history.History) (string, error) {
	data, err := encode(h)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("stats-%d.json", s.now().UnixNano())
	path := filepath.Join(s.fallbackDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func isReadOnly(err error) bool {
	return errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EROFS)
}
