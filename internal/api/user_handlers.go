package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/wellspringapp/wellspring-server/internal/avatar"
	"github.com/wellspringapp/wellspring-server/internal/domain"
	"github.com/wellspringapp/wellspring-server/internal/service"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/profile",
		Summary:     "Get own profile",
		Description: "Returns the caller's profile, creating it on first sign-in",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProfile",
		Method:      http.MethodPatch,
		Path:        "/api/v1/users/profile",
		Summary:     "Update own profile",
		Description: "Changes username, bio, gender or avatar. Usernames are unique ignoring case.",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBookmarks",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/bookmarks",
		Summary:     "List bookmarks",
		Description: "Returns the caller's bookmarked topics",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListBookmarks)

	huma.Register(s.api, huma.Operation{
		OperationID: "setUserRole",
		Method:      http.MethodPatch,
		Path:        "/api/v1/admin/users/{id}/role",
		Summary:     "Set user role",
		Description: "Assigns user, moderator or admin. Admin only.",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSetUserRole)
}

// === DTOs ===

// ProfileResponse is the caller's own profile.
type ProfileResponse struct {
	ID          string    `json:"id" doc:"Identity ID"`
	Username    string    `json:"username" doc:"Unique username"`
	Email       string    `json:"email,omitempty" doc:"Email from the identity provider"`
	Avatar      string    `json:"avatar,omitempty" doc:"Avatar URL"`
	AvatarColor string    `json:"avatar_color" doc:"Placeholder colour for clients without an avatar"`
	Bio         string    `json:"bio,omitempty" doc:"Short bio"`
	Gender      string    `json:"gender,omitempty" doc:"Self-described gender"`
	Role        string    `json:"role" doc:"user, moderator or admin"`
	Bookmarks   []string  `json:"bookmarks" doc:"Bookmarked topic IDs"`
	CreatedAt   time.Time `json:"created_at" doc:"When the profile was created"`
	LastSeenAt  time.Time `json:"last_seen_at" doc:"Last authenticated activity"`
}

// ProfileOutput wraps the profile response for Huma.
type ProfileOutput struct {
	Body ProfileResponse
}

// UpdateProfileRequest is the request body for editing a profile.
type UpdateProfileRequest struct {
	Username *string `json:"username,omitempty" minLength:"3" maxLength:"30" doc:"New username"`
	Bio      *string `json:"bio,omitempty" maxLength:"500" doc:"New bio"`
	Gender   *string `json:"gender,omitempty" enum:"female,male,nonbinary,other,prefer_not_to_say" doc:"Gender"`
	Avatar   *string `json:"avatar,omitempty" maxLength:"2048" doc:"Avatar URL"`
}

// UpdateProfileInput wraps the update profile request for Huma.
type UpdateProfileInput struct {
	Body UpdateProfileRequest
}

// BookmarksResponse lists bookmarked topics.
type BookmarksResponse struct {
	Topics []TopicResponse `json:"topics" doc:"Bookmarked topics in bookmark order"`
}

// BookmarksOutput wraps the bookmarks response for Huma.
type BookmarksOutput struct {
	Body BookmarksResponse
}

// SetRoleRequest is the request body for role assignment.
type SetRoleRequest struct {
	Role string `json:"role" enum:"user,moderator,admin" doc:"Role to assign"`
}

// SetRoleInput wraps the role assignment for Huma.
type SetRoleInput struct {
	ID   string `path:"id" doc:"User ID"`
	Body SetRoleRequest
}

func toProfileResponse(p *domain.Profile) ProfileResponse {
	bookmarks := p.Bookmarks
	if bookmarks == nil {
		bookmarks = []string{}
	}
	return ProfileResponse{
		ID:          p.ID,
		Username:    p.Username,
		Email:       p.Email,
		Avatar:      p.Avatar,
		AvatarColor: avatar.Color(p.ID),
		Bio:         p.Bio,
		Gender:      p.Gender,
		Role:        string(p.EffectiveRole()),
		Bookmarks:   bookmarks,
		CreatedAt:   p.CreatedAt,
		LastSeenAt:  p.LastSeenAt,
	}
}

// === Handlers ===

func (s *Server) handleGetProfile(ctx context.Context, _ *struct{}) (*ProfileOutput, error) {
	caller, err := s.RequireProfile(ctx)
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: toProfileResponse(caller)}, nil
}

func (s *Server) handleUpdateProfile(ctx context.Context, input *UpdateProfileInput) (*ProfileOutput, error) {
	caller, err := s.RequireWriter(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := s.services.Profiles.UpdateProfile(ctx, caller, service.UpdateProfileRequest{
		Username: input.Body.Username,
		Bio:      input.Body.Bio,
		Gender:   input.Body.Gender,
		Avatar:   input.Body.Avatar,
	})
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: toProfileResponse(updated)}, nil
}

func (s *Server) handleListBookmarks(ctx context.Context, _ *struct{}) (*BookmarksOutput, error) {
	caller, err := s.RequireProfile(ctx)
	if err != nil {
		return nil, err
	}
	topics, err := s.services.Profiles.Bookmarks(ctx, caller)
	if err != nil {
		return nil, err
	}
	resp := BookmarksResponse{Topics: make([]TopicResponse, 0, len(topics))}
	for _, t := range topics {
		resp.Topics = append(resp.Topics, topicResponseFor(t, caller))
	}
	return &BookmarksOutput{Body: resp}, nil
}

func (s *Server) handleSetUserRole(ctx context.Context, input *SetRoleInput) (*ProfileOutput, error) {
	caller, err := s.RequireWriter(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := s.services.Profiles.SetRole(ctx, caller, input.ID, domain.Role(input.Body.Role))
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: toProfileResponse(updated)}, nil
}
