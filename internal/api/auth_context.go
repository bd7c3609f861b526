package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wellspringapp/wellspring-server/internal/auth"
	"github.com/wellspringapp/wellspring-server/internal/domain"
	domainerrors "github.com/wellspringapp/wellspring-server/internal/errors"
	"github.com/wellspringapp/wellspring-server/internal/logger"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// identityKey is the context key for the verified caller identity.
const identityKey ctxKey = "identity"

// identityFromContext returns the verified identity, if any.
func identityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	return identity, ok && identity.ID != ""
}

// setIdentity stores the identity in context.
func setIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// authMiddleware returns a middleware that verifies Bearer tokens and stores
// the identity in context. Requests without a valid token continue
// anonymously; handlers that need a caller reject them.
func authMiddleware(verifier auth.Verifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" || verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				log.DebugContext(r.Context(), "bearer token rejected", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := setIdentity(r.Context(), identity)
			ctx = logger.WithAttrs(ctx, slog.String("user_id", identity.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalProfile resolves the caller's profile when a valid token was
// presented and returns nil for anonymous requests.
func (s *Server) OptionalProfile(ctx context.Context) (*domain.Profile, error) {
	identity, ok := identityFromContext(ctx)
	if !ok {
		return nil, nil
	}
	return s.services.Profiles.EnsureProfile(ctx, identity)
}

// RequireProfile returns the caller's profile, creating it on first use.
// Returns 401 for anonymous requests.
func (s *Server) RequireProfile(ctx context.Context) (*domain.Profile, error) {
	identity, ok := identityFromContext(ctx)
	if !ok {
		return nil, domainerrors.Unauthorized("authentication required")
	}
	return s.services.Profiles.EnsureProfile(ctx, identity)
}

// RequireWriter is RequireProfile plus the per-caller write rate limit.
func (s *Server) RequireWriter(ctx context.Context) (*domain.Profile, error) {
	profile, err := s.RequireProfile(ctx)
	if err != nil {
		return nil, err
	}
	if s.writeLimiter != nil && !s.writeLimiter.Allow(profile.ID) {
		s.logger.WarnContext(ctx, "write rate limit exceeded", "user_id", profile.ID)
		return nil, domainerrors.RateLimited("too many writes, slow down")
	}
	return profile, nil
}
