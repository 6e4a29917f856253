package ratelimiter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/auth"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/config"
)

// RateLimiter defines the interface for rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

func (b *bucket) touch(now time.Time) {
	b.lastSeen.Store(now.UnixNano())
}

// TokenBucketLimiter keeps one token bucket per caller key.
type TokenBucketLimiter struct {
	buckets         sync.Map // map[string]*bucket
	limit           rate.Limit
	burst           int
	cleanupInterval time.Duration
	staleThreshold  time.Duration
	now             func() time.Time
}

// NewTokenBucketLimiter creates a limiter. Call Run to evict idle buckets.
func NewTokenBucketLimiter(cfg *config.RateLimitConfig) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		limit:           rate.Limit(cfg.RequestsPerSecond),
		burst:           cfg.BurstSize,
		cleanupInterval: cfg.CleanupInterval,
		staleThreshold:  cfg.StaleThreshold,
		now:             time.Now,
	}
}

// Allow reports whether one call for key may proceed now.
func (tbl *TokenBucketLimiter) Allow(_ context.Context, key string) (bool, error) {
	b, err := tbl.bucketFor(key)
	if err != nil {
		return false, err
	}
	return b.limiter.AllowN(tbl.now(), 1), nil
}

// Wait blocks until a call for key may proceed or ctx is done.
func (tbl *TokenBucketLimiter) Wait(ctx context.Context, key string) error {
	b, err := tbl.bucketFor(key)
	if err != nil {
		return err
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait failed: %w", err)
	}
	return nil
}

func (tbl *TokenBucketLimiter) bucketFor(key string) (*bucket, error) {
	if key == "" {
		return nil, fmt.Errorf("key cannot be empty")
	}
	now := tbl.now()
	if existing, ok := tbl.buckets.Load(key); ok {
		b := existing.(*bucket)
		b.touch(now)
		return b, nil
	}
	fresh := &bucket{limiter: rate.NewLimiter(tbl.limit, tbl.burst)}
	fresh.touch(now)
	actual, _ := tbl.buckets.LoadOrStore(key, fresh)
	return actual.(*bucket), nil
}

// Run evicts buckets idle for longer than the stale threshold until ctx is done.
func (tbl *TokenBucketLimiter) Run(ctx context.Context) {
	if tbl.cleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(tbl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tbl.Evict()
		}
	}
}

// Evict drops idle buckets and returns how many were removed.
func (tbl *TokenBucketLimiter) Evict() int {
	cutoff := tbl.now().Add(-tbl.staleThreshold).UnixNano()
	removed := 0
	tbl.buckets.Range(func(key, value interface{}) bool {
		if value.(*bucket).lastSeen.Load() < cutoff {
			tbl.buckets.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Size returns the number of tracked keys.
func (tbl *TokenBucketLimiter) Size() int {
	n := 0
	tbl.buckets.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// CallerKey identifies the caller: the authenticated user, else the peer address.
func CallerKey(ctx context.Context) string {
	if user, err := auth.UserFromContext(ctx); err == nil && user.ID != "" {
		return "user:" + user.ID
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return "peer:" + p.Addr.String()
	}
	return "anonymous"
}

// UnaryInterceptor rejects calls over the caller's budget with ResourceExhausted.
func UnaryInterceptor(limiter RateLimiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		allowed, err := limiter.Allow(ctx, CallerKey(ctx))
		if err != nil {
			return nil, status.Errorf(codes.Internal, "rate limiter: %v", err)
		}
		if !allowed {
			return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded for %s", info.FullMethod)
		}
		return handler(ctx, req)
	}
}
