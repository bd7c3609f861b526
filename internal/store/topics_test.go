package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellspringapp/wellspring-server/internal/domain"
)

func TestCreateTopic_GetTopic(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	topic := newTestTopic("user-a")
	require.NoError(t, s.CreateTopic(ctx, topic, Idempotency{}))

	got, err := s.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, topic.Title, got.Title)
	assert.Equal(t, "user-a", got.Author.ID)
}

func TestCreateTopic_DuplicateID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	topic := newTestTopic("user-a")
	require.NoError(t, s.CreateTopic(ctx, topic, Idempotency{}))

	err := s.CreateTopic(ctx, topic, Idempotency{})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateTopic_IdempotencyReplay(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	idem := Idempotency{Scope: "topic", CallerID: "user-a", Key: "b7d5c5a4-9c1e-4e53-8f0c-5d7b0a3c2e11"}

	first := newTestTopic("user-a")
	require.NoError(t, s.CreateTopic(ctx, first, idem))

	err := s.CreateTopic(ctx, newTestTopic("user-a"), idem)
	var replay *ReplayError
	require.ErrorAs(t, err, &replay)
	assert.Equal(t, first.ID, replay.ID)

	topics, err := s.AllTopics(ctx)
	require.NoError(t, err)
	assert.Len(t, topics, 1)
}

func TestGetTopic_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetTopic(context.Background(), "topic-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMutateTopic_GuardErrorAbortsWrite(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	topic := newTestTopic("user-a")
	require.NoError(t, s.CreateTopic(ctx, topic, Idempotency{}))

	stop := errors.New("stop")
	_, err := s.MutateTopic(ctx, topic.ID, func(t *domain.Topic) error {
		t.Title = "changed"
		return stop
	})
	require.ErrorIs(t, err, stop)

	got, err := s.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, "Morning routines", got.Title)
}

func TestMutateTopic_ConcurrentTogglesNeverLoseUpdates(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	topic := newTestTopic("user-a")
	require.NoError(t, s.CreateTopic(ctx, topic, Idempotency{}))

	const users = 12
	var wg sync.WaitGroup
	errs := make(chan error, users)
	for i := range users {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.MutateTopic(ctx, topic.ID, func(t *domain.Topic) error {
				t.ToggleLike(fmt.Sprintf("user-%d", i))
				return nil
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, users, got.Likes)
	assert.Equal(t, users, got.LikedBy.Len())
}

func TestMutateTopic_ConcurrentViewsAllCounted(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	topic := newTestTopic("user-a")
	require.NoError(t, s.CreateTopic(ctx, topic, Idempotency{}))

	const views = 25
	var wg sync.WaitGroup
	for range views {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.MutateTopic(ctx, topic.ID, func(t *domain.Topic) error {
				t.Views++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(views), got.Views)
}

func TestDeleteTopic_CascadesReplies(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	topic := newTestTopic("user-a")
	other := newTestTopic("user-b")
	require.NoError(t, s.CreateTopic(ctx, topic, Idempotency{}))
	require.NoError(t, s.CreateTopic(ctx, other, Idempotency{}))

	r1 := newTestReply(topic.ID, "", "user-b")
	mustCreateReply(t, s, r1)
	mustCreateReply(t, s, newTestReply(topic.ID, r1.ID, "user-c"))
	kept := newTestReply(other.ID, "", "user-c")
	mustCreateReply(t, s, kept)

	deleted, err := s.DeleteTopic(ctx, topic.ID, func(*domain.Topic) error { return nil })
	require.NoError(t, err)
	assert.Len(t, deleted, 2)

	_, err = s.GetTopic(ctx, topic.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetReply(ctx, r1.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	replies, err := s.ListReplies(ctx, topic.ID)
	require.NoError(t, err)
	assert.Empty(t, replies)

	_, err = s.GetReply(ctx, kept.ID)
	assert.NoError(t, err)
}

func TestDeleteTopic_GuardRejects(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	topic := newTestTopic("user-a")
	require.NoError(t, s.CreateTopic(ctx, topic, Idempotency{}))

	denied := errors.New("denied")
	_, err := s.DeleteTopic(ctx, topic.ID, func(*domain.Topic) error { return denied })
	require.ErrorIs(t, err, denied)

	_, err = s.GetTopic(ctx, topic.ID)
	assert.NoError(t, err)
}

func TestMutateTopic_CancelledContext(t *testing.T) {
	s := setupTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.MutateTopic(ctx, "topic-x", func(*domain.Topic) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
