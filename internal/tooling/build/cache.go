package build

import (
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheEntry records one successful generator run.
type CacheEntry struct {
	Output      string
	InputHash   string
	OutputHash  string
	Fingerprint string
	CachedAt    time.Time
}

// Store persists cache entries keyed by output file.
type Store interface {
	Get(ctx context.Context, key string) (*CacheEntry, bool, error)
	Put(ctx context.Context, key string, entry *CacheEntry) error
	Clear(ctx context.Context) error
	// Flush persists pending entries; stores that write through may no-op.
	Flush() error
	Close() error
}

// Cache skips generator runs whose input, command line and output are all
// unchanged since the last successful run.
type Cache struct {
	store  Store
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache wraps a store
func NewCache(store Store) *Cache {
	return &Cache{store: store}
}

// Fresh reports whether job's output is up to date. Any error reading the
// store or hashing files counts as a miss.
func (c *Cache) Fresh(ctx context.Context, job Job, fingerprint string) bool {
	entry, ok, err := c.store.Get(ctx, job.Output)
	if err != nil || !ok {
		c.misses.Add(1)
		return false
	}

	inputHash, err := computeFileHash(job.Input)
	if err != nil || inputHash != entry.InputHash || fingerprint != entry.Fingerprint {
		c.misses.Add(1)
		return false
	}

	outputHash, err := computeFileHash(job.Output)
	if err != nil || outputHash != entry.OutputHash {
		c.misses.Add(1)
		return false
	}

	c.hits.Add(1)
	return true
}

// Record stores the outcome of a successful generator run.
func (c *Cache) Record(ctx context.Context, job Job, fingerprint string) error {
	inputHash, err := computeFileHash(job.Input)
	if err != nil {
		return fmt.Errorf("hash %s: %w", job.Input, err)
	}
	outputHash, err := computeFileHash(job.Output)
	if err != nil {
		return fmt.Errorf("hash %s: %w", job.Output, err)
	}

	return c.store.Put(ctx, job.Output, &CacheEntry{
		Output:      job.Output,
		InputHash:   inputHash,
		OutputHash:  outputHash,
		Fingerprint: fingerprint,
		CachedAt:    time.Now(),
	})
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	hits, misses := c.hits.Load(), c.misses.Load()
	stats := CacheStats{Hits: int(hits), Misses: int(misses)}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

// Clear drops every entry.
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Flush persists entries recorded so far.
func (c *Cache) Flush() error {
	return c.store.Flush()
}

// Close flushes and releases the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

// CacheStats contains cache statistics
type CacheStats struct {
	Hits    int
	Misses  int
	HitRate float64
}

func computeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileStore keeps entries in memory and persists them as a gob index in
// its directory on Close.
type FileStore struct {
	dir     string
	entries map[string]*CacheEntry
	dirty   bool
	mu      sync.RWMutex
}

const cacheIndexFile = "index.gob"

// NewFileStore opens (or creates) a cache directory. A corrupt index is
// discarded rather than failing the build.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	store := &FileStore{
		dir:     dir,
		entries: make(map[string]*CacheEntry),
	}
	if err := store.load(); err != nil {
		store.entries = make(map[string]*CacheEntry)
	}
	return store, nil
}

// Get returns the entry for key
func (s *FileStore) Get(_ context.Context, key string) (*CacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	return entry, ok, nil
}

// Put stores entry under key
func (s *FileStore) Put(_ context.Context, key string, entry *CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry
	s.dirty = true
	return nil
}

// Clear removes all entries and the index file
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*CacheEntry)
	s.dirty = false
	if err := os.Remove(filepath.Join(s.dir, cacheIndexFile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Close persists pending entries
func (s *FileStore) Close() error {
	return s.Flush()
}

// Flush writes the index if anything changed since the last write
func (s *FileStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	if err := s.persist(); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Len returns the number of entries
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *FileStore) load() error {
	file, err := os.Open(filepath.Join(s.dir, cacheIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open cache index: %w", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(&s.entries); err != nil {
		return fmt.Errorf("failed to decode cache: %w", err)
	}
	return nil
}

// persist must be called with s.mu held.
func (s *FileStore) persist() error {
	indexPath := filepath.Join(s.dir, cacheIndexFile)
	tmpPath := indexPath + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}

	if err := gob.NewEncoder(file).Encode(s.entries); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write cache: %w", err)
	}

	if err := os.Rename(tmpPath, indexPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save cache: %w", err)
	}
	return nil
}

// RedisStore shares cache entries between machines through Redis. Entries
// are JSON values under Prefix+key and expire after TTL (zero keeps them).
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// DefaultRedisConfig returns a default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:   "localhost:6379",
		Prefix: "manifold:build:",
		TTL:    7 * 24 * time.Hour,
	}
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, config RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", config.Addr, err)
	}

	return NewRedisStoreWithClient(client, config), nil
}

// NewRedisStoreWithClient uses an existing client
func NewRedisStoreWithClient(client *redis.Client, config RedisConfig) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: config.Prefix,
		ttl:    config.TTL,
	}
}

// Get returns the entry for key
func (r *RedisStore) Get(ctx context.Context, key string) (*CacheEntry, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var entry CacheEntry
	if err := json.Unmarshal(value, &entry); err != nil {
		return nil, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return &entry, true, nil
}

// Put stores entry under key
func (r *RedisStore) Put(ctx context.Context, key string, entry *CacheEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, value, r.ttl).Err()
}

// Clear removes every key under the prefix
func (r *RedisStore) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Flush is a no-op; Redis writes through
func (r *RedisStore) Flush() error {
	return nil
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}
