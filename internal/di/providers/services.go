package providers

import (
	"github.com/samber/do/v2"

	"github.com/wellspringapp/wellspring-server/internal/config"
	"github.com/wellspringapp/wellspring-server/internal/logger"
	"github.com/wellspringapp/wellspring-server/internal/service"
	"github.com/wellspringapp/wellspring-server/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideNotificationService provides the notification fan-out service.
func ProvideNotificationService(i do.Injector) (*service.NotificationService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewNotificationService(storeHandle.Store, log.WithComponent("notifications").Logger), nil
}

// ProvideProfileService provides the user directory service.
func ProvideProfileService(i do.Injector) (*service.ProfileService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewProfileService(storeHandle.Store, validator, cfg.Auth.IsAdminIdentity, log.WithComponent("profiles").Logger), nil
}

// ProvideTopicService provides the topic service.
func ProvideTopicService(i do.Injector) (*service.TopicService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchHandle](i)
	cacheHandle := do.MustInvoke[*ListCacheHandle](i)
	notifications := do.MustInvoke[*service.NotificationService](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	// A nil *cache.TopicLists must not become a non-nil interface.
	var lists service.ListCache
	if cacheHandle.Lists != nil {
		lists = cacheHandle.Lists
	}

	return service.NewTopicService(storeHandle.Store, searchHandle.Service, lists, notifications, validator, log.WithComponent("topics").Logger), nil
}

// ProvideReplyService provides the reply threading service.
func ProvideReplyService(i do.Injector) (*service.ReplyService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	notifications := do.MustInvoke[*service.NotificationService](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReplyService(storeHandle.Store, notifications, validator, log.WithComponent("replies").Logger), nil
}

// ProvideModerationService provides the report moderation service.
func ProvideModerationService(i do.Injector) (*service.ModerationService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	notifications := do.MustInvoke[*service.NotificationService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewModerationService(storeHandle.Store, notifications, log.WithComponent("moderation").Logger), nil
}
