// Package providers holds the samber/do constructors for every server
// component.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/wellspringapp/wellspring-server/internal/config"
	"github.com/wellspringapp/wellspring-server/internal/logger"
)

func ProvideConfig(do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger builds the root logger. Development builds log source
// locations.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	env := cfg.App.Environment

	log := logger.New(logger.Config{
		Environment: env,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   env == "development",
	})
	log.Info("Wellspring starting",
		"env", env,
		"level", cfg.Logger.Level,
		"data", cfg.Storage.DataPath,
		"auth", cfg.Auth.Provider,
		"search", cfg.Search.Backend,
	)
	return log, nil
}
