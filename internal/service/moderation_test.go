package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellspringapp/wellspring-server/internal/domain"
	domainerrors "github.com/wellspringapp/wellspring-server/internal/errors"
)

func TestModeration_QueueAndResolve(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)
	bob := env.user(t, "bob", domain.RoleUser)
	carol := env.user(t, "carol", domain.RoleUser)
	mod := env.user(t, "mod", domain.RoleModerator)

	topic := env.topic(t, alice, "Miracle cure")
	clean := env.topic(t, alice, "Clean")
	reply := env.reply(t, alice, clean.ID, "")

	require.NoError(t, env.topics.Report(ctx, bob, topic.ID, ReportRequest{Reason: "misinformation"}))
	require.NoError(t, env.topics.Report(ctx, carol, topic.ID, ReportRequest{Reason: "spam"}))
	require.NoError(t, env.replies.Report(ctx, bob, reply.ID, ReportRequest{Reason: "rude"}))

	_, err := env.moderation.ListReported(ctx, alice)
	assertCode(t, err, domainerrors.CodeForbidden)

	queue, err := env.moderation.ListReported(ctx, mod)
	require.NoError(t, err)
	require.Len(t, queue.Topics, 1)
	assert.Equal(t, topic.ID, queue.Topics[0].ID)
	require.Len(t, queue.Replies, 1)
	assert.Equal(t, reply.ID, queue.Replies[0].ID)

	resolved, err := env.moderation.ResolveReports(ctx, mod, domain.SourceTopic, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, resolved)

	for _, reporter := range []*domain.Profile{bob, carol} {
		items := env.inbox(t, reporter)
		require.Len(t, items, 1)
		assert.Equal(t, domain.NotificationSystem, items[0].Type)
		assert.Equal(t, topic.ID, items[0].SourceID)
	}

	// Resolving again is a no-op.
	resolved, err = env.moderation.ResolveReports(ctx, mod, domain.SourceTopic, topic.ID)
	require.NoError(t, err)
	assert.Zero(t, resolved)

	resolved, err = env.moderation.ResolveReports(ctx, mod, domain.SourceReply, reply.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	queue, err = env.moderation.ListReported(ctx, mod)
	require.NoError(t, err)
	assert.Empty(t, queue.Topics)
	assert.Empty(t, queue.Replies)

	_, err = env.moderation.ResolveReports(ctx, mod, domain.SourceKind("profile"), topic.ID)
	assertCode(t, err, domainerrors.CodeValidation)
}
