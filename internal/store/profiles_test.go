package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellspringapp/wellspring-server/internal/domain"
)

func newTestProfile(id, username string) *domain.Profile {
	p := &domain.Profile{Username: username, Role: domain.RoleUser, Bookmarks: []string{}}
	p.ID = id
	p.InitTimestamps(time.Now())
	return p
}

func TestCreateProfile_UsernameUniqueIgnoringCase(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateProfile(ctx, newTestProfile("uid-1", "Sunny")))

	err := s.CreateProfile(ctx, newTestProfile("uid-2", "sunny"))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	got, err := s.GetProfileByUsername(ctx, "SUNNY")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", got.ID)
}

func TestMutateProfile_RenameMovesIndex(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateProfile(ctx, newTestProfile("uid-1", "sunny")))
	require.NoError(t, s.CreateProfile(ctx, newTestProfile("uid-2", "river")))

	_, err := s.MutateProfile(ctx, "uid-1", func(p *domain.Profile) error {
		p.Username = "dawn"
		return nil
	})
	require.NoError(t, err)

	_, err = s.GetProfileByUsername(ctx, "sunny")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := s.GetProfileByUsername(ctx, "dawn")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", got.ID)

	// Taking another user's name fails and leaves the profile untouched.
	_, err = s.MutateProfile(ctx, "uid-1", func(p *domain.Profile) error {
		p.Username = "River"
		return nil
	})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	got, err = s.GetProfile(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "dawn", got.Username)
}

func TestMutateProfile_SameUsernameDifferentCase(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateProfile(ctx, newTestProfile("uid-1", "sunny")))

	_, err := s.MutateProfile(ctx, "uid-1", func(p *domain.Profile) error {
		p.Username = "Sunny"
		return nil
	})
	require.NoError(t, err)
}
