package store

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/wellspringapp/wellspring-server/internal/domain"
)

func (s *Store) initTopics() {
	s.Topics = NewEntity(s, "topic:", func(t *domain.Topic) string { return t.ID })
}

// CreateTopic stores a new topic. A reused idempotency key returns *ReplayError.
func (s *Store) CreateTopic(ctx context.Context, topic *domain.Topic, idem Idempotency) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		if err := checkIdempotency(txn, idem); err != nil {
			return err
		}
		if err := s.Topics.createTxn(txn, topic); err != nil {
			return err
		}
		return recordIdempotency(txn, idem, topic.ID)
	})
}

// GetTopic retrieves a topic by ID.
func (s *Store) GetTopic(ctx context.Context, id string) (*domain.Topic, error) {
	topic, err := s.Topics.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("topic %s: %w", id, err)
	}
	return topic, nil
}

// MutateTopic runs fn against the current topic inside one transaction.
func (s *Store) MutateTopic(ctx context.Context, id string, fn func(*domain.Topic) error) (*domain.Topic, error) {
	topic, err := s.Topics.Mutate(ctx, id, fn)
	if err != nil {
		return nil, fmt.Errorf("topic %s: %w", id, err)
	}
	return topic, nil
}

// AllTopics loads every topic.
func (s *Store) AllTopics(ctx context.Context) ([]*domain.Topic, error) {
	var topics []*domain.Topic
	for topic, err := range s.Topics.List(ctx) {
		if err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, nil
}

// DeleteTopic removes a topic and every reply that references it in one
// transaction. guard runs against the current topic before anything is
// deleted; its error aborts the delete. Returns the deleted reply IDs.
func (s *Store) DeleteTopic(ctx context.Context, id string, guard func(*domain.Topic) error) ([]string, error) {
	var replyIDs []string
	err := s.update(ctx, func(txn *badger.Txn) error {
		topic, err := s.Topics.getTxn(txn, id)
		if err != nil {
			return fmt.Errorf("topic %s: %w", id, err)
		}
		if err := guard(topic); err != nil {
			return err
		}

		replyIDs, err = s.Replies.scanIndexTxn(txn, replyIndexTopic, id+":")
		if err != nil {
			return err
		}
		for _, replyID := range replyIDs {
			if err := ctx.Err(); err != nil {
				return err
			}
			reply, err := s.Replies.getTxn(txn, replyID)
			if err != nil {
				return fmt.Errorf("reply %s: %w", replyID, err)
			}
			if err := s.Replies.deleteTxn(txn, reply); err != nil {
				return err
			}
		}

		return s.Topics.deleteTxn(txn, topic)
	})
	if err != nil {
		return nil, err
	}
	return replyIDs, nil
}
