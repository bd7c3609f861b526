package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellspringapp/wellspring-server/internal/cache"
	"github.com/wellspringapp/wellspring-server/internal/domain"
	domainerrors "github.com/wellspringapp/wellspring-server/internal/errors"
)

func topicIDs(page *TopicPage) []string {
	ids := make([]string, len(page.Items))
	for i, item := range page.Items {
		ids[i] = item.ID
	}
	return ids
}

func TestListTopics_NewestFirstWithPinnedLeading(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)
	mod := env.user(t, "mod", domain.RoleModerator)

	first := env.topic(t, alice, "First")
	second := env.topic(t, alice, "Second")
	third := env.topic(t, alice, "Third")

	_, err := env.topics.SetPinned(ctx, mod, first.ID, true)
	require.NoError(t, err)

	page, err := env.topics.ListTopics(ctx, nil, ListTopicsQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, third.ID, second.ID}, topicIDs(page))

	// Pinning only affects the default ordering.
	page, err = env.topics.ListTopics(ctx, nil, ListTopicsQuery{Sort: SortOldest})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, topicIDs(page))
}

func TestListTopics_CounterSorts(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)
	bob := env.user(t, "bob", domain.RoleUser)
	carol := env.user(t, "carol", domain.RoleUser)

	quiet := env.topic(t, alice, "Quiet")
	liked := env.topic(t, alice, "Liked")
	busy := env.topic(t, alice, "Busy")

	for _, u := range []*domain.Profile{bob, carol} {
		_, err := env.topics.ToggleLike(ctx, u, liked.ID)
		require.NoError(t, err)
	}
	env.reply(t, bob, busy.ID, "")
	env.reply(t, carol, busy.ID, "")
	env.reply(t, bob, busy.ID, "")
	for range 5 {
		_, err := env.topics.GetTopic(ctx, bob, quiet.ID)
		require.NoError(t, err)
	}

	tests := []struct {
		sort  string
		first string
	}{
		{SortMostLiked, liked.ID},
		{SortMostReplies, busy.ID},
		{SortMostViewed, quiet.ID},
	}
	for _, tt := range tests {
		t.Run(tt.sort, func(t *testing.T) {
			page, err := env.topics.ListTopics(ctx, nil, ListTopicsQuery{Sort: tt.sort})
			require.NoError(t, err)
			require.Len(t, page.Items, 3)
			assert.Equal(t, tt.first, page.Items[0].ID)
		})
	}
}

func TestListTopics_Pagination(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)

	for i := range 5 {
		env.topic(t, alice, fmt.Sprintf("Topic %d", i))
	}

	page, err := env.topics.ListTopics(ctx, nil, ListTopicsQuery{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 5, page.Total)
	assert.True(t, page.HasMore)

	page, err = env.topics.ListTopics(ctx, nil, ListTopicsQuery{Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.False(t, page.HasMore)

	page, err = env.topics.ListTopics(ctx, nil, ListTopicsQuery{Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 5, page.Total)

	_, err = env.topics.ListTopics(ctx, nil, ListTopicsQuery{PageSize: 500})
	assertCode(t, err, domainerrors.CodeValidation)
}

func TestListTopics_CategoryAndScopes(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)
	bob := env.user(t, "bob", domain.RoleUser)

	general := env.topic(t, alice, "General chat")
	sleep, err := env.topics.CreateTopic(ctx, bob, CreateTopicRequest{
		Title: "Naps", Content: "Do naps help?", Category: "sleep",
	}, "")
	require.NoError(t, err)

	_, err = env.topics.ToggleBookmark(ctx, alice, sleep.ID)
	require.NoError(t, err)

	page, err := env.topics.ListTopics(ctx, nil, ListTopicsQuery{Category: "sleep"})
	require.NoError(t, err)
	assert.Equal(t, []string{sleep.ID}, topicIDs(page))

	page, err = env.topics.ListTopics(ctx, alice, ListTopicsQuery{Scope: ScopeMine})
	require.NoError(t, err)
	assert.Equal(t, []string{general.ID}, topicIDs(page))

	page, err = env.topics.ListTopics(ctx, alice, ListTopicsQuery{Scope: ScopeBookmarked})
	require.NoError(t, err)
	assert.Equal(t, []string{sleep.ID}, topicIDs(page))
	assert.True(t, page.Items[0].IsBookmarked)

	_, err = env.topics.ListTopics(ctx, nil, ListTopicsQuery{Scope: ScopeMine})
	assertCode(t, err, domainerrors.CodeUnauthorized)

	_, err = env.topics.ListTopics(ctx, nil, ListTopicsQuery{Category: "gossip"})
	assertCode(t, err, domainerrors.CodeValidation)
}

func TestListTopics_Search(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)

	match, err := env.topics.CreateTopic(ctx, alice, CreateTopicRequest{
		Title: "Morning meditation", Content: "Ten quiet minutes", Category: "mindfulness",
	}, "")
	require.NoError(t, err)
	env.topic(t, alice, "Protein shakes")

	page, err := env.topics.ListTopics(ctx, nil, ListTopicsQuery{Search: "meditation"})
	require.NoError(t, err)
	assert.Equal(t, []string{match.ID}, topicIDs(page))

	// Deleted topics leave the index.
	require.NoError(t, env.topics.DeleteTopic(ctx, alice, match.ID))
	page, err = env.topics.ListTopics(ctx, nil, ListTopicsQuery{Search: "meditation"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestListTopics_ServesCachedOrdering(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := cache.Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	lists := cache.NewTopicLists(client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = lists.Close() })

	env := setupTestServicesWithCache(t, lists)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)

	first := env.topic(t, alice, "First")

	page, err := env.topics.ListTopics(ctx, nil, ListTopicsQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, topicIDs(page))

	cached, _, ok := lists.Get(ctx, "any:newest")
	require.True(t, ok)
	assert.Equal(t, []string{first.ID}, cached)

	// Creating a topic invalidates the cached ordering.
	second := env.topic(t, alice, "Second")
	page, err = env.topics.ListTopics(ctx, nil, ListTopicsQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID, first.ID}, topicIDs(page))

	// A cache hit is served without re-sorting the store.
	page, err = env.topics.ListTopics(ctx, nil, ListTopicsQuery{PageSize: 1, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, topicIDs(page))
	assert.Equal(t, 2, page.Total)
}

// racingLists runs beforeSet once, ahead of the first Set.
type racingLists struct {
	*cache.TopicLists
	beforeSet func()
}

func (r *racingLists) Set(ctx context.Context, gen int64, variant string, ids []string) {
	if r.beforeSet != nil {
		fn := r.beforeSet
		r.beforeSet = nil
		fn()
	}
	r.TopicLists.Set(ctx, gen, variant, ids)
}

func TestListTopics_WriteDuringListingIsNotMasked(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := cache.Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	lists := &racingLists{TopicLists: cache.NewTopicLists(client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))}
	t.Cleanup(func() { _ = lists.Close() })

	env := setupTestServicesWithCache(t, lists)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)
	first := env.topic(t, alice, "First")

	var late *domain.Topic
	lists.beforeSet = func() { late = env.topic(t, alice, "Late") }

	page, err := env.topics.ListTopics(ctx, nil, ListTopicsQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, topicIDs(page))
	require.NotNil(t, late)

	page, err = env.topics.ListTopics(ctx, nil, ListTopicsQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{late.ID, first.ID}, topicIDs(page))
}

func TestSortTopics_TiesBreakNewestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	older := &domain.Topic{Likes: 2}
	older.ID = "topic-a"
	older.CreatedAt = base
	newer := &domain.Topic{Likes: 2}
	newer.ID = "topic-b"
	newer.CreatedAt = base.Add(time.Hour)
	top := &domain.Topic{Likes: 5}
	top.ID = "topic-c"
	top.CreatedAt = base.Add(-time.Hour)

	topics := []*domain.Topic{older, top, newer}
	sortTopics(topics, SortMostLiked)

	assert.Equal(t, []*domain.Topic{top, newer, older}, topics)
}

func TestPageBounds(t *testing.T) {
	tests := []struct {
		total, page, size int
		start, end        int
	}{
		{10, 1, 3, 0, 3},
		{10, 4, 3, 9, 10},
		{10, 5, 3, 10, 10},
		{0, 1, 20, 0, 0},
	}
	for _, tt := range tests {
		start, end := pageBounds(tt.total, tt.page, tt.size)
		assert.Equal(t, tt.start, start)
		assert.Equal(t, tt.end, end)
	}
}
