package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/wellspringapp/wellspring-server/internal/domain"
)

func (s *Server) registerNotificationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listNotifications",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/notifications",
		Summary:     "List notifications",
		Description: "Returns the caller's inbox, newest first",
		Tags:        []string{"Notifications"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListNotifications)

	huma.Register(s.api, huma.Operation{
		OperationID: "markNotificationRead",
		Method:      http.MethodPatch,
		Path:        "/api/v1/users/notifications/{id}/read",
		Summary:     "Mark notification read",
		Tags:        []string{"Notifications"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMarkNotificationRead)

	huma.Register(s.api, huma.Operation{
		OperationID: "markAllNotificationsRead",
		Method:      http.MethodPatch,
		Path:        "/api/v1/users/notifications/read-all",
		Summary:     "Mark all notifications read",
		Tags:        []string{"Notifications"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMarkAllNotificationsRead)
}

// === DTOs ===

// ListNotificationsInput contains query parameters for the inbox.
type ListNotificationsInput struct {
	Limit  int  `query:"limit" minimum:"0" maximum:"100" doc:"Maximum notifications to return (default 50)"`
	Unread bool `query:"unread" doc:"Only unread notifications"`
}

// NotificationResponse is one inbox entry.
type NotificationResponse struct {
	ID         string    `json:"id" doc:"Notification ID"`
	Type       string    `json:"type" doc:"reply, like, bookmark, mention or system"`
	Message    string    `json:"message" doc:"Human-readable text"`
	ActorID    string    `json:"actor_id,omitempty" doc:"User who caused the notification"`
	SourceID   string    `json:"source_id" doc:"Topic or reply ID"`
	SourceKind string    `json:"source_kind" doc:"topic or reply"`
	TopicID    string    `json:"topic_id,omitempty" doc:"Topic containing the source"`
	Read       bool      `json:"read" doc:"Whether the notification has been read"`
	CreatedAt  time.Time `json:"created_at" doc:"When the notification was created"`
}

// NotificationListResponse is the caller's inbox.
type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications" doc:"Notifications, newest first"`
	UnreadCount   int                    `json:"unread_count" doc:"Unread notifications in the whole inbox"`
}

// NotificationListOutput wraps the inbox for Huma.
type NotificationListOutput struct {
	Body NotificationListResponse
}

// NotificationIDInput addresses one notification.
type NotificationIDInput struct {
	ID string `path:"id" doc:"Notification ID"`
}

// NotificationOutput wraps a single notification for Huma.
type NotificationOutput struct {
	Body NotificationResponse
}

// MarkAllReadResponse reports how many notifications changed.
type MarkAllReadResponse struct {
	Updated int `json:"updated" doc:"Notifications marked read"`
}

// MarkAllReadOutput wraps the mark-all response for Huma.
type MarkAllReadOutput struct {
	Body MarkAllReadResponse
}

func toNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:         n.ID,
		Type:       string(n.Type),
		Message:    n.Message,
		ActorID:    n.ActorID,
		SourceID:   n.SourceID,
		SourceKind: string(n.SourceKind),
		TopicID:    n.TopicID,
		Read:       n.Read,
		CreatedAt:  n.CreatedAt,
	}
}

// === Handlers ===

func (s *Server) handleListNotifications(ctx context.Context, input *ListNotificationsInput) (*NotificationListOutput, error) {
	caller, err := s.RequireProfile(ctx)
	if err != nil {
		return nil, err
	}
	inbox, err := s.services.Notifications.List(ctx, caller, input.Limit, input.Unread)
	if err != nil {
		return nil, err
	}
	resp := NotificationListResponse{
		Notifications: make([]NotificationResponse, 0, len(inbox.Notifications)),
		UnreadCount:   inbox.Unread,
	}
	for _, n := range inbox.Notifications {
		resp.Notifications = append(resp.Notifications, toNotificationResponse(n))
	}
	return &NotificationListOutput{Body: resp}, nil
}

func (s *Server) handleMarkNotificationRead(ctx context.Context, input *NotificationIDInput) (*NotificationOutput, error) {
	caller, err := s.RequireProfile(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.services.Notifications.MarkRead(ctx, caller, input.ID)
	if err != nil {
		return nil, err
	}
	return &NotificationOutput{Body: toNotificationResponse(n)}, nil
}

func (s *Server) handleMarkAllNotificationsRead(ctx context.Context, _ *struct{}) (*MarkAllReadOutput, error) {
	caller, err := s.RequireProfile(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := s.services.Notifications.MarkAllRead(ctx, caller)
	if err != nil {
		return nil, err
	}
	return &MarkAllReadOutput{Body: MarkAllReadResponse{Updated: updated}}, nil
}
