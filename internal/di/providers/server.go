package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/wellspringapp/wellspring-server/internal/api"
	"github.com/wellspringapp/wellspring-server/internal/auth"
	"github.com/wellspringapp/wellspring-server/internal/config"
	"github.com/wellspringapp/wellspring-server/internal/logger"
	"github.com/wellspringapp/wellspring-server/internal/ratelimit"
	"github.com/wellspringapp/wellspring-server/internal/service"
)

// Version is reported in the OpenAPI document. Overridden at build time.
var Version = "dev"

// drainTimeout bounds how long in-flight requests get on shutdown.
const drainTimeout = 30 * time.Second

// WriteLimiterHandle holds the per-profile write limiter. Limiter is nil
// when RATE_LIMIT_WRITES_PER_MINUTE is 0.
type WriteLimiterHandle struct {
	Limiter *ratelimit.KeyedRateLimiter
}

func (h *WriteLimiterHandle) Shutdown() error {
	if h.Limiter != nil {
		h.Limiter.Stop()
	}
	return nil
}

func ProvideWriteLimiter(i do.Injector) (*WriteLimiterHandle, error) {
	rl := do.MustInvoke[*config.Config](i).RateLimit
	if rl.WritesPerMinute == 0 {
		return &WriteLimiterHandle{}, nil
	}
	return &WriteLimiterHandle{Limiter: ratelimit.PerMinute(rl.WritesPerMinute, max(rl.Burst, 1))}, nil
}

// HTTPServerHandle drains the listener on container shutdown.
type HTTPServerHandle struct {
	*http.Server
}

func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer builds the API and starts listening in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchHandle](i)
	verifier := do.MustInvoke[auth.Verifier](i)
	limiterHandle := do.MustInvoke[*WriteLimiterHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Topics:        do.MustInvoke[*service.TopicService](i),
		Replies:       do.MustInvoke[*service.ReplyService](i),
		Profiles:      do.MustInvoke[*service.ProfileService](i),
		Notifications: do.MustInvoke[*service.NotificationService](i),
		Moderation:    do.MustInvoke[*service.ModerationService](i),
	}

	handler := api.NewServer(
		storeHandle.Store,
		services,
		searchHandle.Service,
		verifier,
		limiterHandle.Limiter,
		api.Options{
			RequestTimeout:     cfg.Server.RequestTimeout,
			CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
			Production:         cfg.App.Environment == "production",
			Version:            Version,
		},
		log.Logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server stopped", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
