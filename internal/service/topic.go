package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wellspringapp/wellspring-server/internal/domain"
	domainerrors "github.com/wellspringapp/wellspring-server/internal/errors"
	"github.com/wellspringapp/wellspring-server/internal/id"
	"github.com/wellspringapp/wellspring-server/internal/search"
	"github.com/wellspringapp/wellspring-server/internal/store"
	"github.com/wellspringapp/wellspring-server/internal/validation"
)

// TopicService owns the topic lifecycle, view counting and topic toggles.
type TopicService struct {
	store     *store.Store
	index     TopicIndex
	lists     ListCache
	notifier  *NotificationService
	validator *validation.Validator
	logger    *slog.Logger
}

// NewTopicService creates a new topic service. lists may be nil.
func NewTopicService(
	store *store.Store,
	index TopicIndex,
	lists ListCache,
	notifier *NotificationService,
	validator *validation.Validator,
	logger *slog.Logger,
) *TopicService {
	return &TopicService{
		store:     store,
		index:     index,
		lists:     lists,
		notifier:  notifier,
		validator: validator,
		logger:    logger,
	}
}

// ListTopics returns one page of topics. Scopes other than "all" need a caller.
func (s *TopicService) ListTopics(ctx context.Context, caller *domain.Profile, q ListTopicsQuery) (*TopicPage, error) {
	if err := s.validator.Validate(q); err != nil {
		return nil, err
	}
	q.applyDefaults()
	q.Search = strings.TrimSpace(q.Search)

	uid := callerID(caller)
	if q.Scope != ScopeAll && uid == "" {
		return nil, domainerrors.Unauthorized("sign in to filter by bookmarks or your own topics")
	}

	variant, cacheable := q.cacheVariant()
	cacheable = cacheable && s.lists != nil
	var gen int64
	if cacheable {
		ids, g, ok := s.lists.Get(ctx, variant)
		if ok {
			return s.pageFromIDs(ctx, caller, ids, q)
		}
		gen = g
	}

	var (
		topics []*domain.Topic
		err    error
	)
	if q.Search != "" {
		topics, err = s.searchTopics(ctx, q)
	} else {
		topics, err = s.store.AllTopics(ctx)
	}
	if err != nil {
		return nil, mapStoreError(err, "topics")
	}

	filtered := topics[:0]
	for _, t := range topics {
		if q.matches(t, uid) {
			filtered = append(filtered, t)
		}
	}
	sortTopics(filtered, q.Sort)

	if cacheable {
		ids := make([]string, len(filtered))
		for i, t := range filtered {
			ids[i] = t.ID
		}
		s.lists.Set(ctx, gen, variant, ids)
	}

	start, end := pageBounds(len(filtered), q.Page, q.PageSize)
	items := make([]TopicView, 0, end-start)
	for _, t := range filtered[start:end] {
		items = append(items, viewTopic(t, caller))
	}

	return &TopicPage{
		Items:    items,
		Total:    len(filtered),
		Page:     q.Page,
		PageSize: q.PageSize,
		HasMore:  end < len(filtered),
	}, nil
}

// pageFromIDs serves a listing from a cached ordering.
func (s *TopicService) pageFromIDs(ctx context.Context, caller *domain.Profile, ids []string, q ListTopicsQuery) (*TopicPage, error) {
	start, end := pageBounds(len(ids), q.Page, q.PageSize)
	topics, err := s.store.Topics.GetMany(ctx, ids[start:end])
	if err != nil {
		return nil, mapStoreError(err, "topics")
	}
	items := make([]TopicView, 0, len(topics))
	for _, t := range topics {
		items = append(items, viewTopic(t, caller))
	}
	return &TopicPage{
		Items:    items,
		Total:    len(ids),
		Page:     q.Page,
		PageSize: q.PageSize,
		HasMore:  end < len(ids),
	}, nil
}

func (s *TopicService) searchTopics(ctx context.Context, q ListTopicsQuery) ([]*domain.Topic, error) {
	ids, err := s.index.SearchTopics(ctx, search.Query{
		Text:     q.Search,
		Category: domain.Category(q.Category),
		Limit:    search.MaxHits,
	})
	if err != nil {
		return nil, fmt.Errorf("search topics: %w", err)
	}
	return s.store.Topics.GetMany(ctx, ids)
}

// GetTopic returns a topic with its replies. Every read by someone other
// than the author counts one view; repeat reads are not de-duplicated.
func (s *TopicService) GetTopic(ctx context.Context, caller *domain.Profile, topicID string) (*TopicDetail, error) {
	if err := checkID(id.PrefixTopic, topicID, "topic"); err != nil {
		return nil, err
	}

	topic, err := s.store.GetTopic(ctx, topicID)
	if err != nil {
		return nil, mapStoreError(err, "topic")
	}

	if !topic.IsAuthor(callerID(caller)) {
		topic, err = s.store.MutateTopic(ctx, topicID, func(t *domain.Topic) error {
			t.Views++
			return nil
		})
		if err != nil {
			return nil, mapStoreError(err, "topic")
		}
	}

	replies, err := s.store.ListReplies(ctx, topicID)
	if err != nil {
		return nil, mapStoreError(err, "replies")
	}

	detail := &TopicDetail{
		TopicView: viewTopic(topic, caller),
		Replies:   make([]ReplyView, 0, len(replies)),
	}
	for _, r := range replies {
		detail.Replies = append(detail.Replies, viewReply(r, caller))
	}
	return detail, nil
}

// CreateTopicRequest is the input for CreateTopic.
type CreateTopicRequest struct {
	Title    string   `json:"title" validate:"notblank,max=200"`
	Content  string   `json:"content" validate:"notblank,max=20000"`
	Category string   `json:"category" validate:"required,category"`
	Tags     []string `json:"tags" validate:"max=10,dive,max=40"`
}

// CreateTopic stores a new topic authored by caller. A repeated
// idempotency key returns the topic the first request created.
func (s *TopicService) CreateTopic(ctx context.Context, caller *domain.Profile, req CreateTopicRequest, idempotencyKey string) (*domain.Topic, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	idem, err := idempotencyFor("topic", caller.ID, idempotencyKey)
	if err != nil {
		return nil, err
	}

	topicID, err := id.Generate(id.PrefixTopic)
	if err != nil {
		return nil, fmt.Errorf("generate topic ID: %w", err)
	}

	now := time.Now()
	topic := &domain.Topic{
		Title:          strings.TrimSpace(req.Title),
		Content:        strings.TrimSpace(req.Content),
		Category:       domain.Category(req.Category),
		Author:         caller.Snapshot(),
		Tags:           domain.NormalizeTags(req.Tags),
		LikedBy:        domain.Membership{},
		BookmarkedBy:   domain.Membership{},
		LastActivityAt: now,
	}
	topic.ID = topicID
	topic.InitTimestamps(now)

	err = s.store.CreateTopic(ctx, topic, idem)
	var replay *store.ReplayError
	if errors.As(err, &replay) {
		s.logger.InfoContext(ctx, "topic create replayed", "topic_id", replay.ID, "author_id", caller.ID)
		existing, getErr := s.store.GetTopic(ctx, replay.ID)
		if getErr != nil {
			return nil, mapStoreError(getErr, "topic")
		}
		return existing, nil
	}
	if err != nil {
		return nil, mapStoreError(err, "topic")
	}

	s.logger.InfoContext(ctx, "topic created",
		"topic_id", topic.ID,
		"author_id", caller.ID,
		"category", topic.Category,
	)

	s.reindex(ctx, topic)
	s.invalidateLists(ctx)
	return topic, nil
}

// UpdateTopicRequest is a partial topic edit. Nil fields are unchanged.
type UpdateTopicRequest struct {
	Title    *string   `json:"title,omitempty" validate:"omitnil,notblank,max=200"`
	Content  *string   `json:"content,omitempty" validate:"omitnil,notblank,max=20000"`
	Category *string   `json:"category,omitempty" validate:"omitnil,category"`
	Tags     *[]string `json:"tags,omitempty" validate:"omitnil,max=10,dive,max=40"`
}

// UpdateTopic edits a topic. Only its author may edit it; moderators
// can delete, lock and pin but not rewrite other people's topics.
func (s *TopicService) UpdateTopic(ctx context.Context, caller *domain.Profile, topicID string, req UpdateTopicRequest) (*domain.Topic, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := checkID(id.PrefixTopic, topicID, "topic"); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	topic, err := s.store.MutateTopic(ctx, topicID, func(t *domain.Topic) error {
		if !t.IsAuthor(caller.ID) {
			return domainerrors.Forbidden("only the author can edit this topic")
		}
		if req.Title != nil {
			t.Title = strings.TrimSpace(*req.Title)
		}
		if req.Content != nil {
			t.Content = strings.TrimSpace(*req.Content)
		}
		if req.Category != nil {
			t.Category = domain.Category(*req.Category)
		}
		if req.Tags != nil {
			t.Tags = domain.NormalizeTags(*req.Tags)
		}
		t.Touch(time.Now())
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "topic")
	}

	s.logger.InfoContext(ctx, "topic updated", "topic_id", topicID, "user_id", caller.ID)

	s.reindex(ctx, topic)
	s.invalidateLists(ctx)
	return topic, nil
}

// DeleteTopic removes a topic and all of its replies. Authors delete their
// own topics; moderators and admins delete any.
func (s *TopicService) DeleteTopic(ctx context.Context, caller *domain.Profile, topicID string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if err := checkID(id.PrefixTopic, topicID, "topic"); err != nil {
		return err
	}

	replyIDs, err := s.store.DeleteTopic(ctx, topicID, func(t *domain.Topic) error {
		if !domain.CanDelete(caller.ID, caller.EffectiveRole(), t.Author.ID) {
			return domainerrors.Forbidden("only the author or a moderator can delete this topic")
		}
		return nil
	})
	if err != nil {
		return mapStoreError(err, "topic")
	}

	s.logger.InfoContext(ctx, "topic deleted",
		"topic_id", topicID,
		"user_id", caller.ID,
		"replies_deleted", len(replyIDs),
	)

	if err := s.index.DeleteTopic(ctx, topicID); err != nil {
		s.logger.WarnContext(ctx, "failed to remove topic from search index", "topic_id", topicID, "error", err)
	}
	s.invalidateLists(ctx)
	return nil
}

// ToggleLike flips the caller's like. The author is notified when a like
// becomes active, unless they liked their own topic.
func (s *TopicService) ToggleLike(ctx context.Context, caller *domain.Profile, topicID string) (domain.ToggleResult, error) {
	if err := requireCaller(caller); err != nil {
		return domain.ToggleResult{}, err
	}
	if err := checkID(id.PrefixTopic, topicID, "topic"); err != nil {
		return domain.ToggleResult{}, err
	}

	var result domain.ToggleResult
	topic, err := s.store.MutateTopic(ctx, topicID, func(t *domain.Topic) error {
		result = t.ToggleLike(caller.ID)
		return nil
	})
	if err != nil {
		return domain.ToggleResult{}, mapStoreError(err, "topic")
	}

	if result.Active {
		s.notifier.Notify(ctx, &domain.Notification{
			UserID:     topic.Author.ID,
			Type:       domain.NotificationLike,
			Message:    fmt.Sprintf("%s liked your topic %q", caller.Username, topic.Title),
			ActorID:    caller.ID,
			SourceID:   topic.ID,
			SourceKind: domain.SourceTopic,
			TopicID:    topic.ID,
		})
	}
	return result, nil
}

// ToggleBookmark flips the caller's bookmark on the topic, which is
// authoritative, then mirrors it into the caller's profile bookmark list in
// a second write. A failed mirror is logged and reported as an internal
// error; the bookmark reconciler repairs the projection.
func (s *TopicService) ToggleBookmark(ctx context.Context, caller *domain.Profile, topicID string) (domain.ToggleResult, error) {
	if err := requireCaller(caller); err != nil {
		return domain.ToggleResult{}, err
	}
	if err := checkID(id.PrefixTopic, topicID, "topic"); err != nil {
		return domain.ToggleResult{}, err
	}

	var result domain.ToggleResult
	topic, err := s.store.MutateTopic(ctx, topicID, func(t *domain.Topic) error {
		result = t.ToggleBookmark(caller.ID)
		return nil
	})
	if err != nil {
		return domain.ToggleResult{}, mapStoreError(err, "topic")
	}

	_, err = s.store.MutateProfile(ctx, caller.ID, func(p *domain.Profile) error {
		p.SetBookmark(topicID, result.Active)
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "bookmark mirror write failed",
			"topic_id", topicID,
			"user_id", caller.ID,
			"active", result.Active,
			"error", err,
		)
		return domain.ToggleResult{}, domainerrors.Internal("bookmark saved on topic but profile update failed").WithCause(err)
	}

	if result.Active {
		s.notifier.Notify(ctx, &domain.Notification{
			UserID:     topic.Author.ID,
			Type:       domain.NotificationBookmark,
			Message:    fmt.Sprintf("%s bookmarked your topic %q", caller.Username, topic.Title),
			ActorID:    caller.ID,
			SourceID:   topic.ID,
			SourceKind: domain.SourceTopic,
			TopicID:    topic.ID,
		})
	}
	return result, nil
}

// ReportRequest carries the reason for a report.
type ReportRequest struct {
	Reason string `json:"reason" validate:"notblank,max=500"`
}

// Report records the caller's report against a topic, replacing any
// earlier report by the same caller.
func (s *TopicService) Report(ctx context.Context, caller *domain.Profile, topicID string, req ReportRequest) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if err := checkID(id.PrefixTopic, topicID, "topic"); err != nil {
		return err
	}
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	_, err := s.store.MutateTopic(ctx, topicID, func(t *domain.Topic) error {
		t.Reports.Upsert(caller.ID, strings.TrimSpace(req.Reason), time.Now())
		return nil
	})
	if err != nil {
		return mapStoreError(err, "topic")
	}

	s.logger.InfoContext(ctx, "topic reported", "topic_id", topicID, "reporter_id", caller.ID)
	return nil
}

// SetLocked locks or unlocks a topic. Locked topics accept no new replies
// and no reply edits. Authors, moderators and admins may lock.
func (s *TopicService) SetLocked(ctx context.Context, caller *domain.Profile, topicID string, locked bool) (*domain.Topic, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := checkID(id.PrefixTopic, topicID, "topic"); err != nil {
		return nil, err
	}

	topic, err := s.store.MutateTopic(ctx, topicID, func(t *domain.Topic) error {
		if !domain.CanDelete(caller.ID, caller.EffectiveRole(), t.Author.ID) {
			return domainerrors.Forbidden("only the author or a moderator can lock this topic")
		}
		t.IsLocked = locked
		t.Touch(time.Now())
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "topic")
	}

	s.logger.InfoContext(ctx, "topic lock changed", "topic_id", topicID, "locked", locked, "user_id", caller.ID)
	return topic, nil
}

// SetPinned pins or unpins a topic. Moderators and admins only.
func (s *TopicService) SetPinned(ctx context.Context, caller *domain.Profile, topicID string, pinned bool) (*domain.Topic, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if !caller.EffectiveRole().CanModerate() {
		return nil, domainerrors.Forbidden("only moderators can pin topics")
	}
	if err := checkID(id.PrefixTopic, topicID, "topic"); err != nil {
		return nil, err
	}

	topic, err := s.store.MutateTopic(ctx, topicID, func(t *domain.Topic) error {
		t.IsPinned = pinned
		t.Touch(time.Now())
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "topic")
	}

	s.logger.InfoContext(ctx, "topic pin changed", "topic_id", topicID, "pinned", pinned, "user_id", caller.ID)
	s.invalidateLists(ctx)
	return topic, nil
}

// Reindex rebuilds the search index from the store.
func (s *TopicService) Reindex(ctx context.Context) (int, error) {
	topics, err := s.store.AllTopics(ctx)
	if err != nil {
		return 0, mapStoreError(err, "topics")
	}
	reindexer, ok := s.index.(interface {
		Reindex(ctx context.Context, topics []*domain.Topic) error
	})
	if !ok {
		for _, t := range topics {
			s.reindex(ctx, t)
		}
		return len(topics), nil
	}
	if err := reindexer.Reindex(ctx, topics); err != nil {
		return 0, fmt.Errorf("reindex topics: %w", err)
	}
	return len(topics), nil
}

func (s *TopicService) reindex(ctx context.Context, topic *domain.Topic) {
	if err := s.index.IndexTopic(ctx, topic); err != nil {
		s.logger.WarnContext(ctx, "failed to index topic", "topic_id", topic.ID, "error", err)
	}
}

func (s *TopicService) invalidateLists(ctx context.Context) {
	if s.lists != nil {
		s.lists.Invalidate(ctx)
	}
}
