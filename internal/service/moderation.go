package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wellspringapp/wellspring-server/internal/domain"
	domainerrors "github.com/wellspringapp/wellspring-server/internal/errors"
	"github.com/wellspringapp/wellspring-server/internal/id"
	"github.com/wellspringapp/wellspring-server/internal/store"
)

// ModerationService exposes the report queue to moderators.
type ModerationService struct {
	store    *store.Store
	notifier *NotificationService
	logger   *slog.Logger
}

// NewModerationService creates a new moderation service.
func NewModerationService(store *store.Store, notifier *NotificationService, logger *slog.Logger) *ModerationService {
	return &ModerationService{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// ReportQueue lists content with unresolved reports.
type ReportQueue struct {
	Topics  []*domain.Topic
	Replies []*domain.Reply
}

func requireModerator(caller *domain.Profile) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !caller.EffectiveRole().CanModerate() {
		return domainerrors.Forbidden("moderator role required")
	}
	return nil
}

// ListReported returns every topic and reply with at least one open report.
func (s *ModerationService) ListReported(ctx context.Context, caller *domain.Profile) (*ReportQueue, error) {
	if err := requireModerator(caller); err != nil {
		return nil, err
	}

	queue := &ReportQueue{
		Topics:  []*domain.Topic{},
		Replies: []*domain.Reply{},
	}
	for topic, err := range s.store.Topics.List(ctx) {
		if err != nil {
			return nil, mapStoreError(err, "topics")
		}
		if topic.Reports.Open() > 0 {
			queue.Topics = append(queue.Topics, topic)
		}
	}
	for reply, err := range s.store.Replies.List(ctx) {
		if err != nil {
			return nil, mapStoreError(err, "replies")
		}
		if reply.Reports.Open() > 0 {
			queue.Replies = append(queue.Replies, reply)
		}
	}
	return queue, nil
}

// ResolveReports marks every open report on a topic or reply resolved and
// sends each reporter a system notification. Returns how many reports were
// resolved.
func (s *ModerationService) ResolveReports(ctx context.Context, caller *domain.Profile, kind domain.SourceKind, targetID string) (int, error) {
	if err := requireModerator(caller); err != nil {
		return 0, err
	}

	var (
		reporters []string
		topicID   string
		label     string
	)
	now := time.Now()

	switch kind {
	case domain.SourceTopic:
		if err := checkID(id.PrefixTopic, targetID, "topic"); err != nil {
			return 0, err
		}
		topic, err := s.store.MutateTopic(ctx, targetID, func(t *domain.Topic) error {
			reporters = t.Reports.ResolveAll(caller.ID, now)
			return nil
		})
		if err != nil {
			return 0, mapStoreError(err, "topic")
		}
		topicID = topic.ID
		label = fmt.Sprintf("the topic %q", topic.Title)

	case domain.SourceReply:
		if err := checkID(id.PrefixReply, targetID, "reply"); err != nil {
			return 0, err
		}
		var title string
		reply, err := s.store.MutateReply(ctx, targetID, func(r *domain.Reply, t *domain.Topic) error {
			reporters = r.Reports.ResolveAll(caller.ID, now)
			title = t.Title
			return nil
		})
		if err != nil {
			return 0, mapStoreError(err, "reply")
		}
		topicID = reply.TopicID
		label = fmt.Sprintf("a reply in %q", title)

	default:
		return 0, domainerrors.Validationf("unknown report target %q", kind)
	}

	for _, reporterID := range reporters {
		s.notifier.Notify(ctx, systemNotice(reporterID, caller.ID,
			fmt.Sprintf("A moderator reviewed your report on %s", label),
			targetID, kind, topicID))
	}

	s.logger.InfoContext(ctx, "reports resolved",
		"target_id", targetID,
		"kind", kind,
		"resolved", len(reporters),
		"moderator_id", caller.ID,
	)
	return len(reporters), nil
}
