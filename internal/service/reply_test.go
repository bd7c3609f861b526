package service

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellspringapp/wellspring-server/internal/domain"
	domainerrors "github.com/wellspringapp/wellspring-server/internal/errors"
)

func TestCreateReply_IncrementsCountAndThreads(t *testing.T) {
	env := setupTestServices(t)
	alice := env.user(t, "alice", domain.RoleUser)
	bob := env.user(t, "bob", domain.RoleUser)
	topic := env.topic(t, alice, "Running")

	top := env.reply(t, bob, topic.ID, "")
	nested := env.reply(t, alice, topic.ID, top.ID)

	assert.Empty(t, top.ParentReplyID)
	assert.Equal(t, top.ID, nested.ParentReplyID)
	assert.Equal(t, "bob", top.Author.Username)

	stored := env.reloadTopic(t, topic.ID)
	assert.Equal(t, 2, stored.ReplyCount)
	assert.False(t, stored.LastActivityAt.Before(nested.CreatedAt))
}

func TestCreateReply_Validation(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)
	topic := env.topic(t, alice, "Validation")

	_, err := env.replies.CreateReply(ctx, alice, topic.ID, CreateReplyRequest{Content: "  "}, "")
	assertCode(t, err, domainerrors.CodeValidation)

	_, err = env.replies.CreateReply(ctx, alice, topic.ID, CreateReplyRequest{
		Content:     "see attached",
		Attachments: []domain.Attachment{{URL: "not a url"}},
	}, "")
	assertCode(t, err, domainerrors.CodeValidation)

	_, err = env.replies.CreateReply(ctx, alice, topic.ID, CreateReplyRequest{
		Content:       "orphan",
		ParentReplyID: "reply-AAAAAAAAAAAAAAAAAAAAA",
	}, "")
	assertCode(t, err, domainerrors.CodeValidation)

	_, err = env.replies.CreateReply(ctx, alice, topic.ID, CreateReplyRequest{
		Content:       "malformed parent",
		ParentReplyID: "not-a-reply",
	}, "")
	assertCode(t, err, domainerrors.CodeValidation)

	_, err = env.replies.CreateReply(ctx, alice, "topic-AAAAAAAAAAAAAAAAAAAAA", CreateReplyRequest{Content: "hello"}, "")
	assertCode(t, err, domainerrors.CodeNotFound)

	// A missing topic is reported before a bad parent.
	_, err = env.replies.CreateReply(ctx, alice, "topic-AAAAAAAAAAAAAAAAAAAAA", CreateReplyRequest{
		Content:       "hello",
		ParentReplyID: "not-a-reply",
	}, "")
	assertCode(t, err, domainerrors.CodeNotFound)

	_, err = env.replies.CreateReply(ctx, nil, topic.ID, CreateReplyRequest{Content: "hello"}, "")
	assertCode(t, err, domainerrors.CodeUnauthorized)

	assert.Zero(t, env.reloadTopic(t, topic.ID).ReplyCount)
}

func TestCreateReply_ParentFromAnotherTopic(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)
	here := env.topic(t, alice, "Here")
	there := env.topic(t, alice, "There")
	foreign := env.reply(t, alice, there.ID, "")

	_, err := env.replies.CreateReply(ctx, alice, here.ID, CreateReplyRequest{
		Content:       "cross-thread",
		ParentReplyID: foreign.ID,
	}, "")
	assertCode(t, err, domainerrors.CodeValidation)
	assert.Zero(t, env.reloadTopic(t, here.ID).ReplyCount)
}

func TestCreateReply_LockedTopicConflicts(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)
	bob := env.user(t, "bob", domain.RoleUser)
	topic := env.topic(t, alice, "Closing soon")
	existing := env.reply(t, bob, topic.ID, "")

	_, err := env.topics.SetLocked(ctx, alice, topic.ID, true)
	require.NoError(t, err)
	inboxBefore := len(env.inbox(t, alice))

	_, err = env.replies.CreateReply(ctx, bob, topic.ID, CreateReplyRequest{Content: "one more"}, "")
	assertCode(t, err, domainerrors.CodeConflict)

	stored := env.reloadTopic(t, topic.ID)
	assert.Equal(t, 1, stored.ReplyCount)
	count, err := env.store.CountReplies(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, env.inbox(t, alice), inboxBefore, "a rejected reply notifies nobody")

	content := "edited"
	_, err = env.replies.UpdateReply(ctx, bob, existing.ID, UpdateReplyRequest{Content: &content})
	assertCode(t, err, domainerrors.CodeConflict)
	unchanged, err := env.store.GetReply(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, existing.Content, unchanged.Content)
	assert.False(t, unchanged.Edited)

	// Likes and deletes of existing replies still work.
	_, err = env.replies.ToggleLike(ctx, alice, existing.ID)
	require.NoError(t, err)
	require.NoError(t, env.replies.DeleteReply(ctx, bob, existing.ID))
	assert.Zero(t, env.reloadTopic(t, topic.ID).ReplyCount)
}

func TestCreateReply_IdempotencyKeyReplays(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)
	bob := env.user(t, "bob", domain.RoleUser)
	topic := env.topic(t, alice, "Retry")
	key := uuid.NewString()

	first, err := env.replies.CreateReply(ctx, bob, topic.ID, CreateReplyRequest{Content: "hi"}, key)
	require.NoError(t, err)
	second, err := env.replies.CreateReply(ctx, bob, topic.ID, CreateReplyRequest{Content: "hi"}, key)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, env.reloadTopic(t, topic.ID).ReplyCount)
	assert.Len(t, env.inbox(t, alice), 1)
}

func TestCreateReply_FanOut(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	author := env.user(t, "author", domain.RoleUser)
	parent := env.user(t, "parent", domain.RoleUser)
	fan := env.user(t, "fan", domain.RoleUser)
	replier := env.user(t, "replier", domain.RoleUser)
	topic := env.topic(t, author, "Fan out")
	root := env.reply(t, parent, topic.ID, "")
	authorInbox := len(env.inbox(t, author))

	_, err := env.replies.CreateReply(ctx, replier, topic.ID, CreateReplyRequest{
		Content:       "agree with @parent and @Fan, cc @author @nobody_here",
		ParentReplyID: root.ID,
	}, "")
	require.NoError(t, err)

	authorItems := env.inbox(t, author)
	require.Len(t, authorItems, authorInbox+1, "author is notified once despite the mention")
	assert.Equal(t, domain.NotificationReply, authorItems[0].Type)

	parentItems := env.inbox(t, parent)
	require.Len(t, parentItems, 1, "parent author is notified once despite the mention")
	assert.Equal(t, domain.NotificationReply, parentItems[0].Type)

	fanItems := env.inbox(t, fan)
	require.Len(t, fanItems, 1)
	assert.Equal(t, domain.NotificationMention, fanItems[0].Type)
	assert.Equal(t, topic.ID, fanItems[0].TopicID)
	assert.Equal(t, domain.SourceReply, fanItems[0].SourceKind)

	assert.Empty(t, env.inbox(t, replier))
}

func TestDeleteReply_ReparentsChildren(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)
	topic := env.topic(t, alice, "Threads")

	a := env.reply(t, alice, topic.ID, "")
	b := env.reply(t, alice, topic.ID, a.ID)
	c := env.reply(t, alice, topic.ID, b.ID)
	d := env.reply(t, alice, topic.ID, c.ID)
	e := env.reply(t, alice, topic.ID, b.ID)

	require.NoError(t, env.replies.DeleteReply(ctx, alice, b.ID))

	replies, err := env.replies.ListReplies(ctx, alice, topic.ID)
	require.NoError(t, err)
	parents := make(map[string]string, len(replies))
	for _, r := range replies {
		parents[r.ID] = r.ParentReplyID
	}

	assert.Equal(t, map[string]string{
		a.ID: "",
		c.ID: a.ID,
		d.ID: c.ID,
		e.ID: a.ID,
	}, parents)
	assert.Equal(t, 4, env.reloadTopic(t, topic.ID).ReplyCount)

	// Deleting a top-level reply promotes its children to top level.
	require.NoError(t, env.replies.DeleteReply(ctx, alice, a.ID))
	for _, id := range []string{c.ID, e.ID} {
		r, err := env.store.GetReply(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, r.ParentReplyID)
	}
}

func TestDeleteReply_Authorization(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)
	bob := env.user(t, "bob", domain.RoleUser)
	mod := env.user(t, "mod", domain.RoleModerator)
	topic := env.topic(t, alice, "Perms")

	r := env.reply(t, bob, topic.ID, "")

	// The topic author does not own other people's replies.
	err := env.replies.DeleteReply(ctx, alice, r.ID)
	assertCode(t, err, domainerrors.CodeForbidden)
	assert.Equal(t, 1, env.reloadTopic(t, topic.ID).ReplyCount)

	require.NoError(t, env.replies.DeleteReply(ctx, mod, r.ID))

	err = env.replies.DeleteReply(ctx, mod, r.ID)
	assertCode(t, err, domainerrors.CodeNotFound)
}

func TestReplyCount_MatchesStoredRepliesOverRandomSequence(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)
	topic := env.topic(t, alice, "Random walk")
	rng := rand.New(rand.NewPCG(7, 11))

	var live []string
	for range 60 {
		if len(live) > 0 && rng.IntN(3) == 0 {
			i := rng.IntN(len(live))
			require.NoError(t, env.replies.DeleteReply(ctx, alice, live[i]))
			live = append(live[:i], live[i+1:]...)
			continue
		}
		parent := ""
		if len(live) > 0 && rng.IntN(2) == 0 {
			parent = live[rng.IntN(len(live))]
		}
		r := env.reply(t, alice, topic.ID, parent)
		live = append(live, r.ID)
	}

	count, err := env.store.CountReplies(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, len(live), count)
	assert.Equal(t, count, env.reloadTopic(t, topic.ID).ReplyCount)

	// Every surviving parent reference points at a live reply in the topic.
	replies, err := env.store.ListReplies(ctx, topic.ID)
	require.NoError(t, err)
	ids := make(map[string]bool, len(replies))
	for _, r := range replies {
		ids[r.ID] = true
	}
	for _, r := range replies {
		if r.ParentReplyID != "" {
			assert.True(t, ids[r.ParentReplyID], "reply %s has dangling parent", r.ID)
		}
	}
}

func TestUpdateReply(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)
	bob := env.user(t, "bob", domain.RoleUser)
	topic := env.topic(t, alice, "Edits")
	r := env.reply(t, bob, topic.ID, "")

	content := "better wording"
	_, err := env.replies.UpdateReply(ctx, alice, r.ID, UpdateReplyRequest{Content: &content})
	assertCode(t, err, domainerrors.CodeForbidden)

	updated, err := env.replies.UpdateReply(ctx, bob, r.ID, UpdateReplyRequest{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, content, updated.Content)
	assert.True(t, updated.Edited)
	assert.Equal(t, r.ParentReplyID, updated.ParentReplyID)
}

func TestReplyToggleLike_NotifiesAuthorOnce(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)
	bob := env.user(t, "bob", domain.RoleUser)
	topic := env.topic(t, alice, "Likes")
	r := env.reply(t, bob, topic.ID, "")

	res, err := env.replies.ToggleLike(ctx, alice, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleResult{Active: true, Count: 1}, res)

	res, err = env.replies.ToggleLike(ctx, alice, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleResult{Active: false, Count: 0}, res)

	items := env.inbox(t, bob)
	require.Len(t, items, 1)
	assert.Equal(t, domain.NotificationLike, items[0].Type)
	assert.Equal(t, r.ID, items[0].SourceID)
}

func TestReportReply(t *testing.T) {
	env := setupTestServices(t)
	ctx := context.Background()
	alice := env.user(t, "alice", domain.RoleUser)
	bob := env.user(t, "bob", domain.RoleUser)
	topic := env.topic(t, alice, "Reports")
	r := env.reply(t, bob, topic.ID, "")

	require.NoError(t, env.replies.Report(ctx, alice, r.ID, ReportRequest{Reason: "off-topic"}))

	stored, err := env.store.GetReply(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, stored.Reports, 1)
	assert.Equal(t, alice.ID, stored.Reports[0].ReporterID)
}
