// Package cache provides the response cache for search results.
//
// The cache is a performance optimization, never a correctness dependency:
// every store failure on the read or write path degrades to a cache miss and
// is absorbed here rather than surfaced to the caller. Correctness against
// stale data is guaranteed by the corpus version embedded in every key, with
// entry TTL as the fallback safety net.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/searchd/internal/models"
)

// DefaultTTL is applied when a caller does not override the entry lifetime.
const DefaultTTL = time.Hour

// Entry is the cached payload for one search key: the assembled result list
// plus the candidate count found before truncation.
type Entry struct {
	Results    []models.ChunkResult `json:"results"`
	TotalFound int                  `json:"total_found"`
}

// Config holds cache store configuration.
type Config struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path string
	// InMemory runs the store without disk persistence.
	InMemory bool
	// DefaultTTL overrides DefaultTTL when positive.
	DefaultTTL time.Duration
}

// Store is a Badger-backed cache with per-entry TTL and prefix invalidation.
type Store struct {
	db     *badger.DB
	ttl    time.Duration
	logger *zap.Logger
}

// NewStore opens the Badger database and returns a ready cache store.
func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Store{db: db, ttl: ttl, logger: logger.Named("cache")}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the entry for key, or (nil, false) when the key is absent,
// expired, undecodable, or the store errors. Failures are logged and treated
// as misses.
func (s *Store) Get(ctx context.Context, key string) (*Entry, bool) {
	if err := ctx.Err(); err != nil {
		return nil, false
	}

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case err == nil:
	case err == badger.ErrKeyNotFound:
		return nil, false
	default:
		s.logger.Warn("cache read failed, treating as miss", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.logger.Warn("cache entry undecodable, treating as miss", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &entry, true
}

// Set stores the entry under key with the given TTL (the store default when
// ttl <= 0). Best-effort: failures are logged and reported as false, never
// returned as errors.
func (s *Store) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) bool {
	if err := ctx.Err(); err != nil {
		return false
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("cache entry not serializable", zap.String("key", key), zap.Error(err))
		return false
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), raw).WithTTL(ttl)
		return txn.SetEntry(e)
	})
	if err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Delete removes the key, or every key under a prefix when the argument ends
// with a '*' wildcard. Returns the number of keys removed. Failures are
// logged and reported as a zero count; deliberate invalidation must not fail
// the operation that triggered it.
func (s *Store) Delete(ctx context.Context, keyOrPattern string) int {
	if err := ctx.Err(); err != nil {
		return 0
	}

	if !strings.HasSuffix(keyOrPattern, "*") {
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete([]byte(keyOrPattern))
		})
		if err != nil {
			s.logger.Warn("cache delete failed", zap.String("key", keyOrPattern), zap.Error(err))
			return 0
		}
		return 1
	}

	prefix := []byte(strings.TrimSuffix(keyOrPattern, "*"))

	// Enumerate matching keys in a read transaction, then delete in batches.
	// Readers racing the deletion at worst see an entry that is about to go;
	// staleness is already bounded by the version-embedded key.
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("cache pattern scan failed", zap.String("pattern", keyOrPattern), zap.Error(err))
		return 0
	}

	deleted := 0
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			s.logger.Warn("cache pattern delete failed", zap.ByteString("key", k), zap.Error(err))
			continue
		}
		deleted++
	}
	if err := wb.Flush(); err != nil {
		s.logger.Warn("cache pattern delete flush failed", zap.String("pattern", keyOrPattern), zap.Error(err))
		return 0
	}
	return deleted
}

// Ping reports whether the store is usable. Used by health checks.
func (s *Store) Ping() bool {
	return !s.db.IsClosed()
}
