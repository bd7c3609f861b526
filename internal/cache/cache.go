// Package cache provides a Redis-backed cache of topic list orderings.
//
// Listing topics sorts the whole collection, so the ordered ID list for each
// (category, sort) pair is cached and pages are sliced from it. Writes that
// change membership or ordering bump a generation counter, which orphans
// every cached list at once; orphans expire by TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	listKeyPrefix = "wellspring:topics:list:"
	generationKey = "wellspring:topics:gen"

	// DefaultListTTL bounds staleness of counters that do not bump the
	// generation (views, likes).
	DefaultListTTL = 30 * time.Second
)

// TopicLists caches ordered topic ID lists.
type TopicLists struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Connect parses a redis:// URL and verifies the server responds.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewTopicLists creates a list cache backed by client.
func NewTopicLists(client *redis.Client, ttl time.Duration, logger *slog.Logger) *TopicLists {
	if ttl <= 0 {
		ttl = DefaultListTTL
	}
	return &TopicLists{client: client, ttl: ttl, logger: logger}
}

func (c *TopicLists) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func listKey(gen int64, variant string) string {
	return fmt.Sprintf("%s%d:%s", listKeyPrefix, gen, variant)
}

// Get returns the cached ordering for variant along with the generation it
// was looked up under. On a miss the generation is still returned so the
// caller can Set under it; it is -1 when Redis could not be read. Errors
// count as misses.
func (c *TopicLists) Get(ctx context.Context, variant string) ([]string, int64, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warn("topic list cache generation error", "error", err)
		return nil, -1, false
	}

	val, err := c.client.Get(ctx, listKey(gen, variant)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false
	}
	if err != nil {
		c.logger.Warn("topic list cache get error", "variant", variant, "error", err)
		return nil, -1, false
	}

	var ids []string
	if err := json.Unmarshal(val, &ids); err != nil {
		c.logger.Warn("topic list cache decode error", "variant", variant, "error", err)
		return nil, gen, false
	}
	c.logger.Debug("topic list cache hit", "variant", variant)
	return ids, gen, true
}

// Set stores the ordering for variant under gen, which must be read before
// the ordering was computed. A write that invalidated in between leaves the
// entry orphaned.
func (c *TopicLists) Set(ctx context.Context, gen int64, variant string, ids []string) {
	if gen < 0 {
		return
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, listKey(gen, variant), data, c.ttl).Err(); err != nil {
		c.logger.Warn("topic list cache set error", "variant", variant, "error", err)
	}
}

// Invalidate orphans every cached list.
func (c *TopicLists) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		c.logger.Warn("topic list cache invalidate error", "error", err)
	}
}

// Close closes the Redis client.
func (c *TopicLists) Close() error {
	return c.client.Close()
}
