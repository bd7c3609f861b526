package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/wellspringapp/wellspring-server/internal/domain"
)

const (
	replyIndexTopic  = "topic"
	replyIndexParent = "parent"
)

// sortableTime renders t so that keys sort oldest first.
func sortableTime(t time.Time) string {
	return fmt.Sprintf("%019d", t.UnixNano())
}

func (s *Store) initReplies() {
	s.Replies = NewEntity(s, "reply:", func(r *domain.Reply) string { return r.ID }).
		// reply:idx:topic:{topicID}:{created}:{replyID}, oldest first
		WithIndex(replyIndexTopic, func(r *domain.Reply) []string {
			return []string{r.TopicID + ":" + sortableTime(r.CreatedAt) + ":" + r.ID}
		}).
		// reply:idx:parent:{parentID}:{replyID}
		WithIndex(replyIndexParent, func(r *domain.Reply) []string {
			if r.ParentReplyID == "" {
				return nil
			}
			return []string{r.ParentReplyID + ":" + r.ID}
		})
}

// ReplyGuard validates a reply create against the current topic and parent.
// parent is nil when the reply is top-level or the parent does not exist.
type ReplyGuard func(topic *domain.Topic, parent *domain.Reply) error

// CreateReply stores reply and increments the topic's reply count in the
// same transaction. A parent deleted concurrently makes the transaction
// conflict, and the retry sees the parent as missing.
func (s *Store) CreateReply(ctx context.Context, reply *domain.Reply, idem Idempotency, guard ReplyGuard) (*domain.Topic, *domain.Reply, error) {
	var (
		owner  *domain.Topic
		parent *domain.Reply
	)
	err := s.update(ctx, func(txn *badger.Txn) error {
		if err := checkIdempotency(txn, idem); err != nil {
			return err
		}

		t, err := s.Topics.getTxn(txn, reply.TopicID)
		if err != nil {
			return fmt.Errorf("topic %s: %w", reply.TopicID, err)
		}

		var p *domain.Reply
		if reply.ParentReplyID != "" {
			p, err = s.Replies.getTxn(txn, reply.ParentReplyID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
		}

		if err := guard(t, p); err != nil {
			return err
		}

		if err := s.Replies.createTxn(txn, reply); err != nil {
			return err
		}

		old := *t
		t.ReplyCount++
		t.LastActivityAt = reply.CreatedAt
		if err := s.Topics.putTxn(txn, t, &old); err != nil {
			return err
		}

		if err := recordIdempotency(txn, idem, reply.ID); err != nil {
			return err
		}
		owner, parent = t, p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return owner, parent, nil
}

// GetReply retrieves a reply by ID.
func (s *Store) GetReply(ctx context.Context, id string) (*domain.Reply, error) {
	reply, err := s.Replies.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reply %s: %w", id, err)
	}
	return reply, nil
}

// ListReplies returns a topic's replies oldest first.
func (s *Store) ListReplies(ctx context.Context, topicID string) ([]*domain.Reply, error) {
	replies := make([]*domain.Reply, 0)
	err := s.view(ctx, func(txn *badger.Txn) error {
		ids, err := s.Replies.scanIndexTxn(txn, replyIndexTopic, topicID+":")
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			reply, err := s.Replies.getTxn(txn, id)
			if err != nil {
				return fmt.Errorf("reply %s: %w", id, err)
			}
			replies = append(replies, reply)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replies, nil
}

// CountReplies returns the number of live replies that reference topicID.
func (s *Store) CountReplies(ctx context.Context, topicID string) (int, error) {
	var n int
	err := s.view(ctx, func(txn *badger.Txn) error {
		ids, err := s.Replies.scanIndexTxn(txn, replyIndexTopic, topicID+":")
		n = len(ids)
		return err
	})
	return n, err
}

// MutateReply runs fn against the current reply and its topic inside one
// transaction. Only the reply is written.
func (s *Store) MutateReply(ctx context.Context, id string, fn func(reply *domain.Reply, topic *domain.Topic) error) (*domain.Reply, error) {
	var result *domain.Reply
	err := s.update(ctx, func(txn *badger.Txn) error {
		reply, err := s.Replies.getTxn(txn, id)
		if err != nil {
			return fmt.Errorf("reply %s: %w", id, err)
		}
		topic, err := s.Topics.getTxn(txn, reply.TopicID)
		if err != nil {
			return fmt.Errorf("topic %s: %w", reply.TopicID, err)
		}

		old := *reply
		if err := fn(reply, topic); err != nil {
			return err
		}
		if err := s.Replies.putTxn(txn, reply, &old); err != nil {
			return err
		}
		result = reply
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteReply removes a reply, re-parents its direct children onto its own
// parent and decrements the topic's reply count by one, all in one
// transaction. guard runs before anything is written.
func (s *Store) DeleteReply(ctx context.Context, id string, guard func(*domain.Reply) error) (*domain.Reply, error) {
	var deleted *domain.Reply
	err := s.update(ctx, func(txn *badger.Txn) error {
		reply, err := s.Replies.getTxn(txn, id)
		if err != nil {
			return fmt.Errorf("reply %s: %w", id, err)
		}
		if err := guard(reply); err != nil {
			return err
		}

		childIDs, err := s.Replies.scanIndexTxn(txn, replyIndexParent, id+":")
		if err != nil {
			return err
		}
		for _, childID := range childIDs {
			child, err := s.Replies.getTxn(txn, childID)
			if err != nil {
				return fmt.Errorf("reply %s: %w", childID, err)
			}
			old := *child
			child.ParentReplyID = reply.ParentReplyID
			if err := s.Replies.putTxn(txn, child, &old); err != nil {
				return err
			}
		}

		if err := s.Replies.deleteTxn(txn, reply); err != nil {
			return err
		}

		topic, err := s.Topics.getTxn(txn, reply.TopicID)
		if errors.Is(err, ErrNotFound) {
			deleted = reply
			return nil
		}
		if err != nil {
			return err
		}
		old := *topic
		topic.ReplyCount = max(topic.ReplyCount-1, 0)
		if err := s.Topics.putTxn(txn, topic, &old); err != nil {
			return err
		}

		deleted = reply
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// AllReplies loads every reply.
func (s *Store) AllReplies(ctx context.Context) ([]*domain.Reply, error) {
	var replies []*domain.Reply
	for reply, err := range s.Replies.List(ctx) {
		if err != nil {
			return nil, err
		}
		replies = append(replies, reply)
	}
	return replies, nil
}
