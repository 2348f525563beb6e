package memory

import (
	"context"
	"sync"
	"time"

	"fundarb/internal/application/port"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Cache 进程内 TTL 缓存。过期懒清理：Get 命中过期项时顺手删除
type Cache struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry
}

func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl: ttl,
		m:   make(map[string]entry),
	}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if c.ttl > 0 && time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// 二次检查：期间可能被 Set 刷新过
		if cur, ok := c.m[key]; ok && time.Now().After(cur.expiresAt) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.data, true, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = entry{data: value, expiresAt: time.Now().Add(c.ttl)}
	return nil
}

func (c *Cache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.m, key)
	}
	return nil
}

func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[string]entry)
	return nil
}

var _ port.QueryCache = (*Cache)(nil)
