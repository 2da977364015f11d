package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// Store is a ristretto-backed Cache sized for the engine's derived-view
// workload: few keys, small values, frequent reads.
type Store struct {
	cache  *ristretto.Cache
	logger *zap.Logger
}

// Options holds cache sizing. MaxEntries bounds the item count; each entry
// costs 1, so admission never weighs value size.
type Options struct {
	MaxEntries int64
	Logger     *zap.Logger
}

// New creates a ristretto-backed store. Frequency counters are sized at 10x
// the entry bound, per ristretto's guidance.
func New(opts Options) (*Store, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: opts.MaxEntries * 10,
		MaxCost:     opts.MaxEntries,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	return &Store{
		cache:  c,
		logger: opts.Logger,
	}, nil
}

// Get retrieves a cached view.
func (s *Store) Get(key string) (interface{}, bool) {
	value, found := s.cache.Get(key)
	if found {
		CacheHitsTotal.Inc()
		s.logger.Debug("cache-hit", zap.String("key", key))
	} else {
		CacheMissesTotal.Inc()
		s.logger.Debug("cache-miss", zap.String("key", key))
	}
	return value, found
}

// Set stores a view with a TTL.
func (s *Store) Set(key string, value interface{}, ttl time.Duration) bool {
	ok := s.cache.SetWithTTL(key, value, 1, ttl)
	if ok {
		CacheSetsTotal.Inc()
		s.logger.Debug("cache-set",
			zap.String("key", key),
			zap.Duration("ttl", ttl))
	}
	return ok
}

// Delete invalidates a key.
func (s *Store) Delete(key string) {
	s.cache.Del(key)
	CacheDeletesTotal.Inc()
	s.logger.Debug("cache-delete", zap.String("key", key))
}

// Close releases the cache's resources.
func (s *Store) Close() {
	s.cache.Close()
	s.logger.Info("cache-closed")
}

// Wait blocks until pending writes are applied. Sets are asynchronous in
// ristretto; tests call this before reading back.
func (s *Store) Wait() {
	s.cache.Wait()
}
