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
	"github.com/wellspringapp/wellspring-server/internal/store"
	"github.com/wellspringapp/wellspring-server/internal/validation"
)

// ReplyService owns replies: threading, edits, deletion with re-parenting
// and reply likes.
type ReplyService struct {
	store     *store.Store
	notifier  *NotificationService
	validator *validation.Validator
	logger    *slog.Logger
}

// NewReplyService creates a new reply service.
func NewReplyService(store *store.Store, notifier *NotificationService, validator *validation.Validator, logger *slog.Logger) *ReplyService {
	return &ReplyService{
		store:     store,
		notifier:  notifier,
		validator: validator,
		logger:    logger,
	}
}

// CreateReplyRequest is the input for CreateReply.
type CreateReplyRequest struct {
	Content       string              `json:"content" validate:"notblank,max=10000"`
	ParentReplyID string              `json:"parent_reply_id,omitempty"`
	Attachments   []domain.Attachment `json:"attachments,omitempty" validate:"max=5,dive"`
}

// CreateReply adds a reply to a topic, optionally nested under another
// reply of the same topic. The topic's reply count moves in the same
// transaction. The topic author, the parent reply's author and any
// @mentioned users are notified once each, never the caller.
func (s *ReplyService) CreateReply(ctx context.Context, caller *domain.Profile, topicID string, req CreateReplyRequest, idempotencyKey string) (*domain.Reply, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := checkID(id.PrefixTopic, topicID, "topic"); err != nil {
		return nil, err
	}
	idem, err := idempotencyFor("reply", caller.ID, idempotencyKey)
	if err != nil {
		return nil, err
	}

	replyID, err := id.Generate(id.PrefixReply)
	if err != nil {
		return nil, fmt.Errorf("generate reply ID: %w", err)
	}

	now := time.Now()
	reply := &domain.Reply{
		TopicID:       topicID,
		ParentReplyID: req.ParentReplyID,
		Content:       strings.TrimSpace(req.Content),
		Author:        caller.Snapshot(),
		Attachments:   req.Attachments,
		LikedBy:       domain.Membership{},
	}
	reply.ID = replyID
	reply.InitTimestamps(now)

	topic, parent, err := s.store.CreateReply(ctx, reply, idem, func(t *domain.Topic, p *domain.Reply) error {
		if t.IsLocked {
			return domainerrors.Conflict("topic is locked")
		}
		if req.ParentReplyID != "" && (!id.Valid(id.PrefixReply, req.ParentReplyID) || p == nil || p.TopicID != t.ID) {
			return domainerrors.Validation("parent reply not found in this topic")
		}
		return nil
	})
	var replay *store.ReplayError
	if errors.As(err, &replay) {
		s.logger.InfoContext(ctx, "reply create replayed", "reply_id", replay.ID, "author_id", caller.ID)
		existing, getErr := s.store.GetReply(ctx, replay.ID)
		if getErr != nil {
			return nil, mapStoreError(getErr, "reply")
		}
		return existing, nil
	}
	if err != nil {
		return nil, mapStoreError(err, "topic")
	}

	s.logger.InfoContext(ctx, "reply created",
		"reply_id", reply.ID,
		"topic_id", topicID,
		"parent_reply_id", reply.ParentReplyID,
		"author_id", caller.ID,
	)

	s.fanOutReply(ctx, caller, topic, parent, reply)
	return reply, nil
}

// fanOutReply notifies the topic author, then the parent author, then
// mentioned users. Nobody is notified twice and the caller never is.
func (s *ReplyService) fanOutReply(ctx context.Context, caller *domain.Profile, topic *domain.Topic, parent, reply *domain.Reply) {
	notified := map[string]bool{caller.ID: true}

	send := func(recipientID string, typ domain.NotificationType, message string) {
		if recipientID == "" || notified[recipientID] {
			return
		}
		notified[recipientID] = true
		s.notifier.Notify(ctx, &domain.Notification{
			UserID:     recipientID,
			Type:       typ,
			Message:    message,
			ActorID:    caller.ID,
			SourceID:   reply.ID,
			SourceKind: domain.SourceReply,
			TopicID:    topic.ID,
		})
	}

	send(topic.Author.ID, domain.NotificationReply,
		fmt.Sprintf("%s replied to your topic %q", caller.Username, topic.Title))

	if parent != nil {
		send(parent.Author.ID, domain.NotificationReply,
			fmt.Sprintf("%s replied to your comment in %q", caller.Username, topic.Title))
	}

	for _, username := range domain.ExtractMentions(reply.Content) {
		profile, err := s.store.GetProfileByUsername(ctx, username)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				s.logger.WarnContext(ctx, "mention lookup failed", "username", username, "error", err)
			}
			continue
		}
		send(profile.ID, domain.NotificationMention,
			fmt.Sprintf("%s mentioned you in %q", caller.Username, topic.Title))
	}
}

// ListReplies returns a topic's replies oldest first.
func (s *ReplyService) ListReplies(ctx context.Context, caller *domain.Profile, topicID string) ([]ReplyView, error) {
	if err := checkID(id.PrefixTopic, topicID, "topic"); err != nil {
		return nil, err
	}
	if _, err := s.store.GetTopic(ctx, topicID); err != nil {
		return nil, mapStoreError(err, "topic")
	}

	replies, err := s.store.ListReplies(ctx, topicID)
	if err != nil {
		return nil, mapStoreError(err, "replies")
	}
	views := make([]ReplyView, 0, len(replies))
	for _, r := range replies {
		views = append(views, viewReply(r, caller))
	}
	return views, nil
}

// UpdateReplyRequest is a partial reply edit. Nil fields are unchanged.
type UpdateReplyRequest struct {
	Content     *string              `json:"content,omitempty" validate:"omitnil,notblank,max=10000"`
	Attachments *[]domain.Attachment `json:"attachments,omitempty" validate:"omitnil,max=5,dive"`
}

// UpdateReply edits a reply. Only its author may edit it, and not while
// the topic is locked.
func (s *ReplyService) UpdateReply(ctx context.Context, caller *domain.Profile, replyID string, req UpdateReplyRequest) (*domain.Reply, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := checkID(id.PrefixReply, replyID, "reply"); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	reply, err := s.store.MutateReply(ctx, replyID, func(r *domain.Reply, t *domain.Topic) error {
		if !r.IsAuthor(caller.ID) {
			return domainerrors.Forbidden("only the author can edit this reply")
		}
		if t != nil && t.IsLocked {
			return domainerrors.Conflict("topic is locked")
		}
		if req.Content != nil {
			r.Content = strings.TrimSpace(*req.Content)
		}
		if req.Attachments != nil {
			r.Attachments = *req.Attachments
		}
		r.Edited = true
		r.Touch(time.Now())
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "reply")
	}

	s.logger.InfoContext(ctx, "reply updated", "reply_id", replyID, "user_id", caller.ID)
	return reply, nil
}

// DeleteReply removes a reply. Its direct children move up to its own
// parent and the topic's reply count drops by exactly one.
func (s *ReplyService) DeleteReply(ctx context.Context, caller *domain.Profile, replyID string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if err := checkID(id.PrefixReply, replyID, "reply"); err != nil {
		return err
	}

	deleted, err := s.store.DeleteReply(ctx, replyID, func(r *domain.Reply) error {
		if !domain.CanDelete(caller.ID, caller.EffectiveRole(), r.Author.ID) {
			return domainerrors.Forbidden("only the author or a moderator can delete this reply")
		}
		return nil
	})
	if err != nil {
		return mapStoreError(err, "reply")
	}

	s.logger.InfoContext(ctx, "reply deleted",
		"reply_id", replyID,
		"topic_id", deleted.TopicID,
		"user_id", caller.ID,
	)
	return nil
}

// ToggleLike flips the caller's like on a reply and notifies the author
// when the like becomes active.
func (s *ReplyService) ToggleLike(ctx context.Context, caller *domain.Profile, replyID string) (domain.ToggleResult, error) {
	if err := requireCaller(caller); err != nil {
		return domain.ToggleResult{}, err
	}
	if err := checkID(id.PrefixReply, replyID, "reply"); err != nil {
		return domain.ToggleResult{}, err
	}

	var (
		result domain.ToggleResult
		title  string
	)
	reply, err := s.store.MutateReply(ctx, replyID, func(r *domain.Reply, t *domain.Topic) error {
		result = r.ToggleLike(caller.ID)
		title = t.Title
		return nil
	})
	if err != nil {
		return domain.ToggleResult{}, mapStoreError(err, "reply")
	}

	if result.Active {
		s.notifier.Notify(ctx, &domain.Notification{
			UserID:     reply.Author.ID,
			Type:       domain.NotificationLike,
			Message:    fmt.Sprintf("%s liked your reply in %q", caller.Username, title),
			ActorID:    caller.ID,
			SourceID:   reply.ID,
			SourceKind: domain.SourceReply,
			TopicID:    reply.TopicID,
		})
	}
	return result, nil
}

// Report records the caller's report against a reply.
func (s *ReplyService) Report(ctx context.Context, caller *domain.Profile, replyID string, req ReportRequest) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if err := checkID(id.PrefixReply, replyID, "reply"); err != nil {
		return err
	}
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	_, err := s.store.MutateReply(ctx, replyID, func(r *domain.Reply, _ *domain.Topic) error {
		r.Reports.Upsert(caller.ID, strings.TrimSpace(req.Reason), time.Now())
		return nil
	})
	if err != nil {
		return mapStoreError(err, "reply")
	}

	s.logger.InfoContext(ctx, "reply reported", "reply_id", replyID, "reporter_id", caller.ID)
	return nil
}
