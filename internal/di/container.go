// Package di wires the server's components with samber/do.
package di

import (
	"github.com/samber/do/v2"

	"github.com/wellspringapp/wellspring-server/internal/auth"
	"github.com/wellspringapp/wellspring-server/internal/config"
	"github.com/wellspringapp/wellspring-server/internal/di/providers"
	"github.com/wellspringapp/wellspring-server/internal/logger"
	"github.com/wellspringapp/wellspring-server/internal/service"
	"github.com/wellspringapp/wellspring-server/internal/validation"
)

// NewContainer registers every provider. Nothing is built until Bootstrap.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearch)
	do.Provide(injector, providers.ProvideListCache)

	// Auth layer
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideVerifier)

	// Business services
	do.Provide(injector, providers.ProvideNotificationService)
	do.Provide(injector, providers.ProvideProfileService)
	do.Provide(injector, providers.ProvideTopicService)
	do.Provide(injector, providers.ProvideReplyService)
	do.Provide(injector, providers.ProvideModerationService)

	// Workers
	do.Provide(injector, providers.ProvideBookmarkRepairJob)
	do.Provide(injector, providers.ProvideStoreGCJob)

	// Server
	do.Provide(injector, providers.ProvideWriteLimiter)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap resolves every provider so configuration and startup errors
// surface before the server reports ready. The HTTP listener is started
// last.
func Bootstrap(injector *do.RootScope) error {
	steps := []func(do.Injector) error{
		resolve[*config.Config],
		resolve[*logger.Logger],
		resolve[*validation.Validator],
		resolve[*providers.StoreHandle],
		resolve[*providers.SearchHandle],
		resolve[*providers.ListCacheHandle],
		resolve[auth.Verifier],
		resolve[*service.NotificationService],
		resolve[*service.ProfileService],
		resolve[*service.TopicService],
		resolve[*service.ReplyService],
		resolve[*service.ModerationService],
		resolve[*providers.BookmarkRepairJob],
		resolve[*providers.StoreGCJob],
		resolve[*providers.WriteLimiterHandle],
		resolve[*providers.HTTPServerHandle],
	}
	for _, step := range steps {
		if err := step(injector); err != nil {
			return err
		}
	}

	providers.TriggerSearchReindexIfNeeded(injector)
	return nil
}

func resolve[T any](i do.Injector) error {
	_, err := do.Invoke[T](i)
	return err
}
