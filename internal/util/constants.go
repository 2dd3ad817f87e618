package util

// 缓存存储后端
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)
