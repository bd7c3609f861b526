package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/wellspringapp/wellspring-server/internal/domain"
	domainerrors "github.com/wellspringapp/wellspring-server/internal/errors"
	"github.com/wellspringapp/wellspring-server/internal/store"
	"github.com/wellspringapp/wellspring-server/internal/validation"
)

const (
	// lastSeenInterval throttles last_seen_at writes per user.
	lastSeenInterval = 5 * time.Minute

	maxUsernameAttempts = 8
	maxUsernameBase     = 24
)

// AdminPolicy reports whether an identity is promoted to admin on first sign-in.
type AdminPolicy func(identityID, email string) bool

// ProfileService maps external identities to forum profiles.
type ProfileService struct {
	store     *store.Store
	validator *validation.Validator
	isAdmin   AdminPolicy
	logger    *slog.Logger
}

// NewProfileService creates a new profile service. isAdmin may be nil.
func NewProfileService(store *store.Store, validator *validation.Validator, isAdmin AdminPolicy, logger *slog.Logger) *ProfileService {
	if isAdmin == nil {
		isAdmin = func(string, string) bool { return false }
	}
	return &ProfileService{
		store:     store,
		validator: validator,
		isAdmin:   isAdmin,
		logger:    logger,
	}
}

// EnsureProfile returns the caller's profile, creating it on first use.
// last_seen_at is refreshed at most once per lastSeenInterval.
func (s *ProfileService) EnsureProfile(ctx context.Context, identity domain.Identity) (*domain.Profile, error) {
	if identity.ID == "" {
		return nil, domainerrors.Unauthorized("authentication required")
	}

	profile, err := s.store.GetProfile(ctx, identity.ID)
	if err == nil {
		return s.touchLastSeen(ctx, profile), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, mapStoreError(err, "profile")
	}

	return s.createProfile(ctx, identity)
}

func (s *ProfileService) createProfile(ctx context.Context, identity domain.Identity) (*domain.Profile, error) {
	base := usernameBase(identity)
	role := domain.RoleUser
	if s.isAdmin(identity.ID, identity.Email) {
		role = domain.RoleAdmin
	}

	for attempt := range maxUsernameAttempts {
		username := base
		if attempt > 0 {
			username = fmt.Sprintf("%s_%d", base, 1000+rand.IntN(9000))
		}

		now := time.Now()
		profile := &domain.Profile{
			Username:   username,
			Email:      identity.Email,
			Avatar:     identity.Picture,
			Role:       role,
			Bookmarks:  []string{},
			LastSeenAt: now,
		}
		profile.ID = identity.ID
		profile.InitTimestamps(now)

		err := s.store.CreateProfile(ctx, profile)
		if err == nil {
			s.logger.InfoContext(ctx, "profile created",
				"user_id", profile.ID,
				"username", profile.Username,
				"role", profile.Role,
			)
			return profile, nil
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return nil, mapStoreError(err, "profile")
		}

		// Either a concurrent first request created this identity's
		// profile, or the username is taken.
		if existing, getErr := s.store.GetProfile(ctx, identity.ID); getErr == nil {
			return existing, nil
		}
	}

	return nil, domainerrors.Conflict("could not allocate a unique username")
}

func (s *ProfileService) touchLastSeen(ctx context.Context, profile *domain.Profile) *domain.Profile {
	if time.Since(profile.LastSeenAt) < lastSeenInterval {
		return profile
	}
	updated, err := s.store.MutateProfile(ctx, profile.ID, func(p *domain.Profile) error {
		p.LastSeenAt = time.Now()
		return nil
	})
	if err != nil {
		s.logger.DebugContext(ctx, "failed to refresh last seen", "user_id", profile.ID, "error", err)
		return profile
	}
	return updated
}

// usernameBase derives a candidate username from the identity's display
// name, falling back to the email local part.
func usernameBase(identity domain.Identity) string {
	candidate := identity.Name
	if candidate == "" {
		candidate, _, _ = strings.Cut(identity.Email, "@")
	}
	name := strings.ReplaceAll(domain.Slugify(candidate), "-", "_")
	if len(name) > maxUsernameBase {
		name = strings.TrimRight(name[:maxUsernameBase], "_")
	}
	if len(name) < 3 {
		name = "member"
	}
	return name
}

// GetProfile returns a profile by identity ID.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err, "profile")
	}
	return profile, nil
}

// UpdateProfileRequest is a partial profile edit. Nil fields are unchanged.
type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty" validate:"omitempty,username"`
	Bio      *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	Gender   *string `json:"gender,omitempty" validate:"omitempty,oneof=female male nonbinary other prefer_not_to_say"`
	Avatar   *string `json:"avatar,omitempty" validate:"omitempty,url,max=2048"`
}

// UpdateProfile edits the caller's own profile. Author snapshots on
// existing topics and replies are not rewritten.
func (s *ProfileService) UpdateProfile(ctx context.Context, caller *domain.Profile, req UpdateProfileRequest) (*domain.Profile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	updated, err := s.store.MutateProfile(ctx, caller.ID, func(p *domain.Profile) error {
		if req.Username != nil {
			p.Username = strings.TrimSpace(*req.Username)
		}
		if req.Bio != nil {
			p.Bio = strings.TrimSpace(*req.Bio)
		}
		if req.Gender != nil {
			p.Gender = *req.Gender
		}
		if req.Avatar != nil {
			p.Avatar = *req.Avatar
		}
		p.Touch(time.Now())
		return nil
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return nil, domainerrors.Conflict("username is already taken")
	}
	if err != nil {
		return nil, mapStoreError(err, "profile")
	}

	s.logger.InfoContext(ctx, "profile updated", "user_id", caller.ID)
	return updated, nil
}

// Bookmarks returns the caller's bookmarked topics in bookmark order.
// Topics deleted since they were bookmarked are skipped.
func (s *ProfileService) Bookmarks(ctx context.Context, caller *domain.Profile) ([]*domain.Topic, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	profile, err := s.store.GetProfile(ctx, caller.ID)
	if err != nil {
		return nil, mapStoreError(err, "profile")
	}
	topics, err := s.store.Topics.GetMany(ctx, profile.Bookmarks)
	if err != nil {
		return nil, mapStoreError(err, "topics")
	}
	return topics, nil
}

// SetRole assigns a role. Only admins may call it, and admins cannot
// change their own role.
func (s *ProfileService) SetRole(ctx context.Context, caller *domain.Profile, userID string, role domain.Role) (*domain.Profile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if caller.EffectiveRole() != domain.RoleAdmin {
		return nil, domainerrors.Forbidden("only admins can assign roles")
	}
	if !role.Valid() {
		return nil, domainerrors.Validationf("unknown role %q", role)
	}
	if userID == caller.ID {
		return nil, domainerrors.Conflict("admins cannot change their own role")
	}

	updated, err := s.store.MutateProfile(ctx, userID, func(p *domain.Profile) error {
		p.Role = role
		p.Touch(time.Now())
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "profile")
	}

	s.logger.InfoContext(ctx, "role assigned", "user_id", userID, "role", role, "by", caller.ID)
	return updated, nil
}
