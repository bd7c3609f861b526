package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wellspringapp/wellspring-server/internal/domain"
	"github.com/wellspringapp/wellspring-server/internal/id"
)

// setupTestStore creates an in-memory store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func newTestTopic(authorID string) *domain.Topic {
	topic := &domain.Topic{
		Title:    "Morning routines",
		Content:  "What does yours look like?",
		Category: domain.CategoryGeneral,
		Author:   domain.Author{ID: authorID, Username: authorID},
	}
	topic.ID = id.MustGenerate(id.PrefixTopic)
	topic.InitTimestamps(time.Now())
	topic.LastActivityAt = topic.CreatedAt
	return topic
}

func newTestReply(topicID, parentID, authorID string) *domain.Reply {
	reply := &domain.Reply{
		TopicID:       topicID,
		ParentReplyID: parentID,
		Content:       "reply body",
		Author:        domain.Author{ID: authorID, Username: authorID},
	}
	reply.ID = id.MustGenerate(id.PrefixReply)
	reply.InitTimestamps(time.Now())
	return reply
}

func allowReply(*domain.Topic, *domain.Reply) error { return nil }

func mustCreateReply(t *testing.T, s *Store, reply *domain.Reply) {
	t.Helper()
	_, _, err := s.CreateReply(context.Background(), reply, Idempotency{}, allowReply)
	require.NoError(t, err)
}
