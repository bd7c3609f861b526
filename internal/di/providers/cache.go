package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/wellspringapp/wellspring-server/internal/cache"
	"github.com/wellspringapp/wellspring-server/internal/config"
	"github.com/wellspringapp/wellspring-server/internal/logger"
)

// ListCacheHandle wraps the optional Redis topic list cache.
// Lists is nil when REDIS_URL is unset or Redis is unreachable.
type ListCacheHandle struct {
	Lists *cache.TopicLists
}

// Shutdown implements do.Shutdownable.
func (h *ListCacheHandle) Shutdown() error {
	if h.Lists == nil {
		return nil
	}
	return h.Lists.Close()
}

// ProvideListCache connects to Redis when configured. An unreachable Redis
// disables the cache rather than failing startup.
func ProvideListCache(i do.Injector) (*ListCacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Cache.RedisURL == "" {
		log.Info("Topic list cache disabled")
		return &ListCacheHandle{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := cache.Connect(ctx, cfg.Cache.RedisURL)
	if err != nil {
		log.Warn("Topic list cache unavailable, continuing without it", "error", err)
		return &ListCacheHandle{}, nil
	}

	log.Info("Topic list cache connected", "ttl", cfg.Cache.ListTTL)
	return &ListCacheHandle{Lists: cache.NewTopicLists(client, cfg.Cache.ListTTL, log.Logger)}, nil
}
