package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) (*TopicLists, *miniredis.Miniredis) {
	t.Helper()

	s := miniredis.RunT(t)
	client, err := Connect(context.Background(), "redis://"+s.Addr())
	require.NoError(t, err)

	c := NewTopicLists(client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = c.Close() })
	return c, s
}

func TestTopicLists_SetGet(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	_, gen, ok := c.Get(ctx, "all:newest")
	assert.False(t, ok)
	assert.Zero(t, gen)

	c.Set(ctx, gen, "all:newest", []string{"topic-1", "topic-2"})

	ids, _, ok := c.Get(ctx, "all:newest")
	require.True(t, ok)
	assert.Equal(t, []string{"topic-1", "topic-2"}, ids)
}

func TestTopicLists_InvalidateOrphansLists(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	c.Set(ctx, 0, "all:newest", []string{"topic-1"})
	c.Set(ctx, 0, "fitness:most_liked", []string{"topic-2"})
	c.Invalidate(ctx)

	_, gen, ok := c.Get(ctx, "all:newest")
	assert.False(t, ok)
	assert.Equal(t, int64(1), gen)
	_, _, ok = c.Get(ctx, "fitness:most_liked")
	assert.False(t, ok)

	c.Set(ctx, gen, "all:newest", []string{"topic-3"})
	ids, _, ok := c.Get(ctx, "all:newest")
	require.True(t, ok)
	assert.Equal(t, []string{"topic-3"}, ids)
}

func TestTopicLists_SetUnderStaleGenerationIsOrphaned(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	_, gen, ok := c.Get(ctx, "all:newest")
	require.False(t, ok)

	// A write lands while the ordering is being computed.
	c.Invalidate(ctx)
	c.Set(ctx, gen, "all:newest", []string{"topic-1"})

	_, _, ok = c.Get(ctx, "all:newest")
	assert.False(t, ok)
}

func TestTopicLists_SetSkipsUnknownGeneration(t *testing.T) {
	c, s := setupTestCache(t)
	ctx := context.Background()

	c.Set(ctx, -1, "all:newest", []string{"topic-1"})
	assert.False(t, s.Exists(listKey(-1, "all:newest")))
}

func TestTopicLists_TTL(t *testing.T) {
	c, s := setupTestCache(t)
	ctx := context.Background()

	c.Set(ctx, 0, "all:newest", []string{"topic-1"})
	s.FastForward(2 * time.Minute)

	_, _, ok := c.Get(ctx, "all:newest")
	assert.False(t, ok)
}

func TestConnect_BadURL(t *testing.T) {
	_, err := Connect(context.Background(), "not a url")
	assert.Error(t, err)
}
