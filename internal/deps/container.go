package deps

import (
	"gorm.io/gorm"

	"github.com/foldmarket/fold/internal/cache"
	"github.com/foldmarket/fold/internal/logger"
	"github.com/foldmarket/fold/internal/sanitizer"
)

// Container holds the shared dependencies handed to every module at mount
// time.
type Container struct {
	DB        *gorm.DB
	Sanitizer sanitizer.HTMLStripperer
	Logger    logger.Logger

	// CacheBackend selects the cache implementation for CacheFor. Redis must
	// be set when the backend is cache.RedisBackend.
	CacheBackend string
	Redis        *cache.RedisOptions
}

func NewContainer(db *gorm.DB, stripper sanitizer.HTMLStripperer, log logger.Logger) *Container {
	return &Container{
		DB:           db,
		Sanitizer:    stripper,
		Logger:       log,
		CacheBackend: cache.MemoryBackend,
	}
}

// WithRedis switches CacheFor to redis-backed caches.
func (c *Container) WithRedis(opts *cache.RedisOptions) *Container {
	c.CacheBackend = cache.RedisBackend
	c.Redis = opts
	return c
}

// CacheFor builds a cache of the value type a module needs, backed by the
// container's configured backend.
func CacheFor[V any](c *Container) cache.Cache[V] {
	if c.CacheBackend == cache.RedisBackend && c.Redis != nil {
		return cache.NewCache[V](cache.RedisBackend, c.Redis)
	}
	return cache.NewMemoryCache[V]()
}
