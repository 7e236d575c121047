package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/busauth/internal/common"
	"github.com/dmitrijs2005/busauth/internal/server/models"
	"github.com/patrickmn/go-cache"
)

// MemoryRepository keeps sessions in process memory. Rows are evicted once
// they are past their expiry, which is when validation would reject them
// anyway.
type MemoryRepository struct {
	mu sync.Mutex
	c  *cache.Cache
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{c: cache.New(cache.NoExpiration, 10*time.Minute)}
}

func (r *MemoryRepository) Create(_ context.Context, s *models.Session) error {
	cp := *s
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		// keep already-expired rows briefly so validation can say "expired"
		ttl = time.Minute
	}
	r.c.Set(s.ID, &cp, ttl)
	return nil
}

func (r *MemoryRepository) Find(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.c.Get(id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *v.(*models.Session)
	return &cp, nil
}

func (r *MemoryRepository) Revoke(_ context.Context, id, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.c.Get(id)
	if !ok {
		return common.ErrorNotFound
	}
	s := v.(*models.Session)
	if s.RevokedAt != nil {
		return common.ErrorNotFound
	}
	revoke(s, reason, at)
	return nil
}

func (r *MemoryRepository) RevokeAllForUser(_ context.Context, username, reason string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, item := range r.c.Items() {
		s := item.Object.(*models.Session)
		if s.Username == username && s.RevokedAt == nil {
			revoke(s, reason, at)
			n++
		}
	}
	return n, nil
}

func revoke(s *models.Session, reason string, at time.Time) {
	t := at
	s.RevokedAt = &t
	s.RevokeReason = reason
}
