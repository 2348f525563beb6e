package composite

import (
	"context"

	"fundarb/internal/application/port"
)

// Cache 分层缓存：读按层序短路（前层命中即回填返回），
// 写和失效扇出到所有层，保留第一个错误
type Cache struct {
	layers []port.QueryCache
}

func New(layers ...port.QueryCache) *Cache {
	// nil 层允许传入，构造时过滤
	out := make([]port.QueryCache, 0, len(layers))
	for _, l := range layers {
		if l != nil {
			out = append(out, l)
		}
	}
	return &Cache{layers: out}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	for i, layer := range c.layers {
		b, ok, err := layer.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		// 回填前面未命中的层
		for j := 0; j < i; j++ {
			_ = c.layers[j].Set(ctx, key, b)
		}
		return b, true, nil
	}
	return nil, false, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	var firstErr error
	for _, layer := range c.layers {
		if err := layer.Set(ctx, key, value); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	var firstErr error
	for _, layer := range c.layers {
		if err := layer.Invalidate(ctx, keys...); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Cache) Close() error {
	var firstErr error
	for _, layer := range c.layers {
		if err := layer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.QueryCache = (*Cache)(nil)
