package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/wellspringapp/wellspring-server/internal/domain"
	"github.com/wellspringapp/wellspring-server/internal/id"
	"github.com/wellspringapp/wellspring-server/internal/store"
)

// DefaultNotificationLimit is the page size for inbox listings.
const DefaultNotificationLimit = 50

// NotificationService delivers notifications to user inboxes and manages read state.
type NotificationService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewNotificationService creates a new notification service.
func NewNotificationService(store *store.Store, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		store:  store,
		logger: logger,
	}
}

// Notify delivers n to n.UserID's inbox unless the recipient is the actor.
// Delivery failures are logged and never returned: the mutation that
// triggered the notification has already been committed.
// Reports whether the notification was stored.
func (s *NotificationService) Notify(ctx context.Context, n *domain.Notification) bool {
	if n.UserID == "" || n.UserID == n.ActorID {
		return false
	}

	notifID, err := id.Generate(id.PrefixNotification)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to generate notification id", "error", err)
		return false
	}
	n.ID = notifID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	dropped, err := s.store.AddNotification(ctx, n)
	if err != nil {
		s.logger.WarnContext(ctx, "notification delivery failed",
			"recipient_id", n.UserID,
			"type", n.Type,
			"source_id", n.SourceID,
			"error", err,
		)
		return false
	}

	if len(dropped) > 0 {
		s.logger.DebugContext(ctx, "inbox trimmed", "recipient_id", n.UserID, "dropped", len(dropped))
	}
	return true
}

// Inbox is a page of a user's notifications plus their unread total.
type Inbox struct {
	Notifications []*domain.Notification
	Unread        int
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, caller *domain.Profile, limit int, unreadOnly bool) (*Inbox, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > domain.MaxInboxSize {
		limit = DefaultNotificationLimit
	}

	items, err := s.store.ListNotifications(ctx, caller.ID, limit, unreadOnly)
	if err != nil {
		return nil, mapStoreError(err, "notifications")
	}
	unread, err := s.store.CountUnreadNotifications(ctx, caller.ID)
	if err != nil {
		return nil, mapStoreError(err, "notifications")
	}

	return &Inbox{Notifications: items, Unread: unread}, nil
}

// UnreadCount returns how many of the caller's notifications are unread.
func (s *NotificationService) UnreadCount(ctx context.Context, caller *domain.Profile) (int, error) {
	if err := requireCaller(caller); err != nil {
		return 0, err
	}
	n, err := s.store.CountUnreadNotifications(ctx, caller.ID)
	if err != nil {
		return 0, mapStoreError(err, "notifications")
	}
	return n, nil
}

// MarkRead marks one of the caller's notifications read. Ids from another
// user's inbox are reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, caller *domain.Profile, notificationID string) (*domain.Notification, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := checkID(id.PrefixNotification, notificationID, "notification"); err != nil {
		return nil, err
	}

	n, err := s.store.MarkNotificationRead(ctx, caller.ID, notificationID)
	if err != nil {
		return nil, mapStoreError(err, "notification")
	}
	return n, nil
}

// MarkAllRead marks every notification in the caller's inbox read and
// returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, caller *domain.Profile) (int, error) {
	if err := requireCaller(caller); err != nil {
		return 0, err
	}
	n, err := s.store.MarkAllNotificationsRead(ctx, caller.ID)
	if err != nil {
		return 0, mapStoreError(err, "notifications")
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "notifications marked read", "user_id", caller.ID, "count", n)
	}
	return n, nil
}

// systemNotice builds a system notification about a moderation outcome.
func systemNotice(recipientID, actorID, message, sourceID string, kind domain.SourceKind, topicID string) *domain.Notification {
	return &domain.Notification{
		UserID:     recipientID,
		Type:       domain.NotificationSystem,
		Message:    message,
		ActorID:    actorID,
		SourceID:   sourceID,
		SourceKind: kind,
		TopicID:    topicID,
	}
}
