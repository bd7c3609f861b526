package search

import (
	"context"
	"log/slog"

	"github.com/wellspringapp/wellspring-server/internal/domain"
)

// Service keeps the topic indexes in sync and answers searches. It prefers
// Meilisearch when configured and healthy and falls back to the local
// Bleve index otherwise. Both indexes receive every write.
type Service struct {
	local  *Index
	meili  *Meili
	logger *slog.Logger
}

// NewService creates a search service. meili may be nil.
func NewService(local *Index, meili *Meili, logger *slog.Logger) *Service {
	return &Service{local: local, meili: meili, logger: logger}
}

// IndexTopic adds or refreshes a topic.
func (s *Service) IndexTopic(_ context.Context, topic *domain.Topic) error {
	doc := FromTopic(topic)
	if s.meili != nil && s.meili.Healthy() {
		if err := s.meili.IndexDocuments([]*TopicDocument{doc}); err != nil {
			s.logger.Warn("meilisearch index topic failed", "topic_id", topic.ID, "error", err)
		}
	}
	return s.local.IndexDocument(doc)
}

// DeleteTopic removes a topic.
func (s *Service) DeleteTopic(_ context.Context, topicID string) error {
	if s.meili != nil && s.meili.Healthy() {
		if err := s.meili.DeleteDocument(topicID); err != nil {
			s.logger.Warn("meilisearch delete topic failed", "topic_id", topicID, "error", err)
		}
	}
	return s.local.DeleteDocument(topicID)
}

// SearchTopics returns matching topic IDs, most relevant first.
func (s *Service) SearchTopics(ctx context.Context, q Query) ([]string, error) {
	if s.meili != nil && s.meili.Healthy() {
		ids, err := s.meili.Search(q)
		if err == nil {
			return ids, nil
		}
		s.logger.Warn("meilisearch error, falling back to local index", "error", err)
	}
	return s.local.Search(ctx, q)
}

// Reindex rebuilds every index from topics.
func (s *Service) Reindex(_ context.Context, topics []*domain.Topic) error {
	docs := make([]*TopicDocument, 0, len(topics))
	for _, t := range topics {
		docs = append(docs, FromTopic(t))
	}
	if s.meili != nil && s.meili.Healthy() {
		if err := s.meili.IndexDocuments(docs); err != nil {
			s.logger.Warn("meilisearch reindex failed", "error", err)
		}
	}
	return s.local.Rebuild(docs)
}

// DocumentCount returns the number of topics in the local index.
func (s *Service) DocumentCount() (uint64, error) {
	return s.local.DocumentCount()
}

// Close releases the indexes.
func (s *Service) Close() error {
	if s.meili != nil {
		_ = s.meili.Close()
	}
	return s.local.Close()
}
