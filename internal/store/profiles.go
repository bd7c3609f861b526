package store

import (
	"context"
	"fmt"

	"github.com/wellspringapp/wellspring-server/internal/domain"
)

const profileIndexUsername = "username"

func (s *Store) initProfiles() {
	s.Profiles = NewEntity(s, "profile:", func(p *domain.Profile) string { return p.ID }).
		WithUniqueIndex(profileIndexUsername,
			func(p *domain.Profile) []string {
				return []string{domain.NormalizeUsername(p.Username)}
			},
			domain.NormalizeUsername,
		)
}

// CreateProfile stores a new profile. Returns ErrAlreadyExists when the ID
// or the (case-insensitive) username is taken.
func (s *Store) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	return s.Profiles.Create(ctx, profile)
}

// GetProfile retrieves a profile by identity ID.
func (s *Store) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	profile, err := s.Profiles.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", id, err)
	}
	return profile, nil
}

// GetProfileByUsername looks a profile up by username, ignoring case.
func (s *Store) GetProfileByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	profile, err := s.Profiles.GetByIndex(ctx, profileIndexUsername, username)
	if err != nil {
		return nil, fmt.Errorf("profile @%s: %w", username, err)
	}
	return profile, nil
}

// MutateProfile runs fn against the current profile inside one transaction,
// keeping the username index in step.
func (s *Store) MutateProfile(ctx context.Context, id string, fn func(*domain.Profile) error) (*domain.Profile, error) {
	profile, err := s.Profiles.Mutate(ctx, id, fn)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", id, err)
	}
	return profile, nil
}

// AllProfiles loads every profile.
func (s *Store) AllProfiles(ctx context.Context) ([]*domain.Profile, error) {
	var profiles []*domain.Profile
	for profile, err := range s.Profiles.List(ctx) {
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}
