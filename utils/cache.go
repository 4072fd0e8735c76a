package utils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeenStore remembers keys for a while so repeated work can be skipped.
type SeenStore interface {
	// MarkSeen records key and reports whether it was new.
	MarkSeen(ctx context.Context, key string) (bool, error)
}

// MemorySeen is an in-process SeenStore with expiring entries.
type MemorySeen struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewMemorySeen creates a store whose entries expire after ttl and starts its janitor.
func NewMemorySeen(ttl time.Duration) *MemorySeen {
	m := &MemorySeen{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go m.startJanitor(ttl)
	return m
}

// MarkSeen implements SeenStore.
func (m *MemorySeen) MarkSeen(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if seenAt, ok := m.entries[key]; ok && now.Sub(seenAt) <= m.ttl {
		return false, nil
	}
	m.entries[key] = now
	return true, nil
}

// Len returns the number of tracked keys, expired or not.
func (m *MemorySeen) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the janitor.
func (m *MemorySeen) Close() {
	m.once.Do(func() { close(m.stop) })
}

// startJanitor runs a background process to clean up expired entries.
func (m *MemorySeen) startJanitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *MemorySeen) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for key, seenAt := range m.entries {
		if now.Sub(seenAt) > m.ttl {
			delete(m.entries, key)
		}
	}
}

// RedisSeen is a SeenStore shared across restarts and processes.
type RedisSeen struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSeen connects to the Redis instance at rawURL (redis://...).
func NewRedisSeen(rawURL, prefix string, ttl time.Duration) (*RedisSeen, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &RedisSeen{client: redis.NewClient(opts), prefix: prefix, ttl: ttl}, nil
}

// Ping checks the connection.
func (r *RedisSeen) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// MarkSeen implements SeenStore.
func (r *RedisSeen) MarkSeen(ctx context.Context, key string) (bool, error) {
	return r.client.SetNX(ctx, r.prefix+key, 1, r.ttl).Result()
}

// Close closes the client.
func (r *RedisSeen) Close() error {
	return r.client.Close()
}
