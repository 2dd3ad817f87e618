package cache

import (
	"context"
	"time"
)

// Store 缓存存储。ttl 为 0 表示不过期。
// 不提供跨读者的事务保证，Add 是唯一的条件写原语。
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, blob []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Add 仅当 key 不存在时写入
	Add(ctx context.Context, key string, blob []byte, ttl time.Duration) (bool, error)
}
