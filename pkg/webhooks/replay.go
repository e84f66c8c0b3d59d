package webhooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeliveryKey identifies one delivery. Providers that send an id header are
// keyed on it; otherwise the body hash is used.
func DeliveryKey(r *http.Request, body []byte) string {
	for _, h := range []string{"X-Webhook-Id", "Webhook-Id", "X-Request-Id"} {
		if id := r.Header.Get(h); id != "" {
			return "id:" + id
		}
	}
	sum := sha256.Sum256(body)
	return "body:" + hex.EncodeToString(sum[:])
}

// MemoryReplayProtector remembers deliveries for TTL within one process.
type MemoryReplayProtector struct {
	TTL time.Duration
	Now func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryReplayProtector(ttl time.Duration) *MemoryReplayProtector {
	return &MemoryReplayProtector{TTL: ttl, Now: time.Now, seen: make(map[string]time.Time)}
}

func (p *MemoryReplayProtector) Check(_ context.Context, r *http.Request, body []byte) error {
	key := DeliveryKey(r, body)
	now := p.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	for k, exp := range p.seen {
		if !now.Before(exp) {
			delete(p.seen, k)
		}
	}
	if _, ok := p.seen[key]; ok {
		return fmt.Errorf("%w: %s", ErrReplayDetected, key)
	}
	p.seen[key] = now.Add(p.TTL)
	return nil
}

// RedisReplayProtector shares the seen set between server replicas.
type RedisReplayProtector struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisReplayProtector(client *redis.Client, prefix string, ttl time.Duration) *RedisReplayProtector {
	return &RedisReplayProtector{client: client, prefix: prefix, ttl: ttl}
}

func (p *RedisReplayProtector) Check(ctx context.Context, r *http.Request, body []byte) error {
	key := DeliveryKey(r, body)
	ok, err := p.client.SetNX(ctx, p.prefix+":"+key, time.Now().Unix(), p.ttl).Result()
	if err != nil {
		return fmt.Errorf("replay check: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrReplayDetected, key)
	}
	return nil
}
