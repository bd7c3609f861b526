package api

import "github.com/wellspringapp/wellspring-server/internal/service"

// Services groups the business logic services used by the API server.
type Services struct {
	Topics        *service.TopicService
	Replies       *service.ReplyService
	Profiles      *service.ProfileService
	Notifications *service.NotificationService
	Moderation    *service.ModerationService
}
