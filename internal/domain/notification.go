package domain

import "time"

// MaxInboxSize caps each user's notification inbox; the oldest entries are
// dropped on overflow.
const MaxInboxSize = 100

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationReply    NotificationType = "reply"
	NotificationLike     NotificationType = "like"
	NotificationBookmark NotificationType = "bookmark"
	NotificationMention  NotificationType = "mention"
	NotificationSystem   NotificationType = "system"
)

// SourceKind says whether a notification points at a topic or a reply.
type SourceKind string

const (
	SourceTopic SourceKind = "topic"
	SourceReply SourceKind = "reply"
)

// Notification is one entry in a user's inbox.
type Notification struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Type       NotificationType `json:"type"`
	Message    string           `json:"message"`
	ActorID    string           `json:"actor_id,omitempty"`
	SourceID   string           `json:"source_id"`
	SourceKind SourceKind       `json:"source_kind"`
	TopicID    string           `json:"topic_id,omitempty"`
	Read       bool             `json:"read"`
	CreatedAt  time.Time        `json:"created_at"`
}
