package grpc

import (
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// peerLimiter keeps one token bucket per peer. Idle buckets expire from the
// cache after idleTTL.
type peerLimiter struct {
	rate     rate.Limit
	burst    int
	limiters *cache.Cache
}

func newPeerLimiter(perSecond float64, burst int, idleTTL time.Duration) *peerLimiter {
	if burst < 1 {
		burst = 1
	}
	return &peerLimiter{
		rate:     rate.Limit(perSecond),
		burst:    burst,
		limiters: cache.New(idleTTL, idleTTL),
	}
}

func (p *peerLimiter) get(key string) *rate.Limiter {
	if v, ok := p.limiters.Get(key); ok {
		l := v.(*rate.Limiter)
		p.limiters.SetDefault(key, l)
		return l
	}

	l := rate.NewLimiter(p.rate, p.burst)
	if err := p.limiters.Add(key, l, cache.DefaultExpiration); err != nil {
		// lost the race, use the winner
		if v, ok := p.limiters.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

func (p *peerLimiter) Allow(key string) bool {
	return p.get(key).Allow()
}
