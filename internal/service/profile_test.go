package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellspringapp/wellspring-server/internal/domain"
	domainerrors "github.com/wellspringapp/wellspring-server/internal/errors"
)

func TestEnsureProfile_CreatesOnceAndReturnsExisting(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	identity := domain.Identity{ID: "uid-1", Email: "sam.jones@example.com"}

	created, err := env.profiles.EnsureProfile(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, "sam_jones", created.Username)
	assert.Equal(t, domain.RoleUser, created.Role)
	assert.Empty(t, created.Bookmarks)

	again, err := env.profiles.EnsureProfile(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, created.Username, again.Username)

	_, err = env.profiles.EnsureProfile(ctx, domain.Identity{})
	assertCode(t, err, domainerrors.CodeUnauthorized)
}

func TestEnsureProfile_UsernameCollisionGetsSuffix(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()

	first, err := env.profiles.EnsureProfile(ctx, domain.Identity{ID: "uid-1", Name: "Jordan"})
	require.NoError(t, err)
	second, err := env.profiles.EnsureProfile(ctx, domain.Identity{ID: "uid-2", Name: "jordan"})
	require.NoError(t, err)

	assert.Equal(t, "jordan", first.Username)
	assert.NotEqual(t, first.Username, second.Username)
	assert.Regexp(t, `^jordan_\d{4}$`, second.Username)
}

func TestEnsureProfile_AdminPolicy(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	env.profiles = NewProfileService(env.store, env.profiles.validator, func(id, email string) bool {
		return email == "owner@example.com"
	}, testLogger())

	owner, err := env.profiles.EnsureProfile(ctx, domain.Identity{ID: "uid-owner", Email: "owner@example.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, owner.Role)

	member, err := env.profiles.EnsureProfile(ctx, domain.Identity{ID: "uid-m", Email: "member@example.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, member.Role)
}

func TestEnsureProfile_RefreshesStaleLastSeen(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)

	stale := time.Now().Add(-time.Hour)
	_, err := env.store.MutateProfile(ctx, alice.ID, func(p *domain.Profile) error {
		p.LastSeenAt = stale
		return nil
	})
	require.NoError(t, err)

	profile, err := env.profiles.EnsureProfile(ctx, domain.Identity{ID: alice.ID})
	require.NoError(t, err)
	assert.True(t, profile.LastSeenAt.After(stale))
}

func TestUpdateProfile(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)
	env.user(t, "bob", domain.RoleUser)

	bio := "Morning runner"
	updated, err := env.profiles.UpdateProfile(ctx, alice, UpdateProfileRequest{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, bio, updated.Bio)
	assert.Equal(t, "alice", updated.Username)

	taken := "BOB"
	_, err = env.profiles.UpdateProfile(ctx, alice, UpdateProfileRequest{Username: &taken})
	assertCode(t, err, domainerrors.CodeConflict)

	invalid := "no spaces allowed"
	_, err = env.profiles.UpdateProfile(ctx, alice, UpdateProfileRequest{Username: &invalid})
	assertCode(t, err, domainerrors.CodeValidation)

	gender := "unknown-value"
	_, err = env.profiles.UpdateProfile(ctx, alice, UpdateProfileRequest{Gender: &gender})
	assertCode(t, err, domainerrors.CodeValidation)

	renamed := "alice_runs"
	updated, err = env.profiles.UpdateProfile(ctx, alice, UpdateProfileRequest{Username: &renamed})
	require.NoError(t, err)
	assert.Equal(t, renamed, updated.Username)

	byName, err := env.store.GetProfileByUsername(ctx, "ALICE_RUNS")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)
}

func TestSetRole(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	admin := env.user(t, "admin", domain.RoleAdmin)
	mod := env.user(t, "mod", domain.RoleModerator)
	alice := env.user(t, "alice", domain.RoleUser)

	_, err := env.profiles.SetRole(ctx, mod, alice.ID, domain.RoleModerator)
	assertCode(t, err, domainerrors.CodeForbidden)

	_, err = env.profiles.SetRole(ctx, admin, admin.ID, domain.RoleUser)
	assertCode(t, err, domainerrors.CodeConflict)

	_, err = env.profiles.SetRole(ctx, admin, alice.ID, domain.Role("owner"))
	assertCode(t, err, domainerrors.CodeValidation)

	_, err = env.profiles.SetRole(ctx, admin, "uid-missing", domain.RoleModerator)
	assertCode(t, err, domainerrors.CodeNotFound)

	promoted, err := env.profiles.SetRole(ctx, admin, alice.ID, domain.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleModerator, promoted.Role)
}

func TestUsernameBase(t *testing.T) {
	tests := []struct {
		identity domain.Identity
		want     string
	}{
		{domain.Identity{Name: "Renée O'Brien"}, "renee_o_brien"},
		{domain.Identity{Email: "kim@example.com"}, "kim"},
		{domain.Identity{Name: "Al"}, "member"},
		{domain.Identity{Name: "A very long display name indeed here"}, "a_very_long_display_name"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, usernameBase(tt.identity))
	}
}
