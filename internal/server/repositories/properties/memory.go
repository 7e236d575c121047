package properties

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is a process-local store for single-instance deployments and
// tests. Counters are kept as int64 so go-cache can increment them under its
// own lock.
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore creates a store whose entries expire after ttl
// (zero means never).
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &MemoryStore{c: cache.New(ttl, 10*time.Minute)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return "", false, nil
	}
	switch value := v.(type) {
	case string:
		return value, true, nil
	case int64:
		return strconv.FormatInt(value, 10), true, nil
	default:
		return "", false, fmt.Errorf("unexpected value type %T for %q", v, key)
	}
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.c.SetDefault(key, value)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.c.Delete(k)
	}
	return nil
}

func (s *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	var err error
	for range 3 {
		if err = s.c.Add(key, int64(1), cache.DefaultExpiration); err == nil {
			return 1, nil
		}
		var n int64
		if n, err = s.c.IncrementInt64(key, 1); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("incrementing %q: %w", key, err)
}
