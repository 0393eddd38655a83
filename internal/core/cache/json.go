package cache

import (
	"context"
	"encoding/json"
	"time"
)

// GetOrLoadJSON 以 JSON 形式缓存 *T；load 返回的错误不会被缓存
// 缓存内容无法解码时视为未命中，删除后重新回源
func GetOrLoadJSON[T any](
	c *Cache,
	ctx context.Context,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (*T, error),
) (*T, error) {
	if c == nil {
		return load(ctx)
	}
	fetch := func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}

	b, err := c.GetOrLoad(ctx, key, ttl, fetch)
	if err != nil {
		return nil, err
	}
	out, err := decode[T](b)
	if err == nil {
		return out, nil
	}

	// 结构变更后旧缓存可能解不开
	_ = c.Invalidate(ctx, key)
	b, err = c.GetOrLoad(ctx, key, ttl, fetch)
	if err != nil {
		return nil, err
	}
	return decode[T](b)
}

func decode[T any](b []byte) (*T, error) {
	if string(b) == "null" {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
