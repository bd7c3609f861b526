package api

import (
	"time"

	"github.com/wellspringapp/wellspring-server/internal/avatar"
	"github.com/wellspringapp/wellspring-server/internal/domain"
	"github.com/wellspringapp/wellspring-server/internal/service"
)

// Responses expose caller flags and never the liker/bookmarker sets.

// AuthorResponse is the author snapshot on topics and replies.
type AuthorResponse struct {
	ID          string    `json:"id" doc:"Author identity ID"`
	Username    string    `json:"username" doc:"Username at the time of writing"`
	Avatar      string    `json:"avatar,omitempty" doc:"Avatar URL"`
	AvatarColor string    `json:"avatar_color" doc:"Placeholder colour for clients without an avatar"`
	JoinedAt    time.Time `json:"joined_at" doc:"When the author joined"`
}

// TopicResponse contains topic data in API responses.
type TopicResponse struct {
	ID             string         `json:"id" doc:"Topic ID"`
	Title          string         `json:"title" doc:"Title"`
	Content        string         `json:"content" doc:"Body text"`
	Category       string         `json:"category" doc:"Category"`
	Author         AuthorResponse `json:"author" doc:"Author snapshot"`
	Tags           []string       `json:"tags" doc:"Normalised tags"`
	Views          int64          `json:"views" doc:"View count"`
	Likes          int            `json:"likes" doc:"Like count"`
	ReplyCount     int            `json:"reply_count" doc:"Number of live replies"`
	IsPinned       bool           `json:"is_pinned" doc:"Pinned by a moderator"`
	IsLocked       bool           `json:"is_locked" doc:"Closed to new replies"`
	IsLiked        bool           `json:"is_liked" doc:"Caller likes this topic"`
	IsBookmarked   bool           `json:"is_bookmarked" doc:"Caller bookmarked this topic"`
	CreatedAt      time.Time      `json:"created_at" doc:"Creation time"`
	UpdatedAt      time.Time      `json:"updated_at" doc:"Last edit time"`
	LastActivityAt time.Time      `json:"last_activity_at" doc:"Last reply time"`
}

// ReplyResponse contains reply data in API responses.
type ReplyResponse struct {
	ID            string              `json:"id" doc:"Reply ID"`
	TopicID       string              `json:"topic_id" doc:"Topic ID"`
	ParentReplyID string              `json:"parent_reply_id,omitempty" doc:"Parent reply ID, empty for top-level replies"`
	Content       string              `json:"content" doc:"Body text"`
	Author        AuthorResponse      `json:"author" doc:"Author snapshot"`
	Attachments   []domain.Attachment `json:"attachments" doc:"Attached files"`
	Likes         int                 `json:"likes" doc:"Like count"`
	IsLiked       bool                `json:"is_liked" doc:"Caller likes this reply"`
	Edited        bool                `json:"edited" doc:"Edited since creation"`
	CreatedAt     time.Time           `json:"created_at" doc:"Creation time"`
	UpdatedAt     time.Time           `json:"updated_at" doc:"Last edit time"`
}

// ToggleResponse is returned by like and bookmark toggles.
type ToggleResponse struct {
	Active bool `json:"active" doc:"Whether the caller's like or bookmark is now set"`
	Count  int  `json:"count" doc:"Resulting count"`
}

// ToggleOutput wraps the toggle response for Huma.
type ToggleOutput struct {
	Body ToggleResponse
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message" doc:"Result message"`
}

// MessageOutput wraps a message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

func toAuthorResponse(a domain.Author) AuthorResponse {
	return AuthorResponse{
		ID:          a.ID,
		Username:    a.Username,
		Avatar:      a.Avatar,
		AvatarColor: avatar.Color(a.ID),
		JoinedAt:    a.JoinedAt,
	}
}

func toTopicResponse(v service.TopicView) TopicResponse {
	t := v.Topic
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return TopicResponse{
		ID:             t.ID,
		Title:          t.Title,
		Content:        t.Content,
		Category:       string(t.Category),
		Author:         toAuthorResponse(t.Author),
		Tags:           tags,
		Views:          t.Views,
		Likes:          t.Likes,
		ReplyCount:     t.ReplyCount,
		IsPinned:       t.IsPinned,
		IsLocked:       t.IsLocked,
		IsLiked:        v.IsLiked,
		IsBookmarked:   v.IsBookmarked,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		LastActivityAt: t.LastActivityAt,
	}
}

// topicResponseFor builds a response for a topic the caller just wrote.
func topicResponseFor(t *domain.Topic, caller *domain.Profile) TopicResponse {
	return toTopicResponse(service.TopicView{
		Topic:        t,
		IsLiked:      caller != nil && t.LikedBy.Has(caller.ID),
		IsBookmarked: caller != nil && t.BookmarkedBy.Has(caller.ID),
	})
}

func toReplyResponse(v service.ReplyView) ReplyResponse {
	r := v.Reply
	attachments := r.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return ReplyResponse{
		ID:            r.ID,
		TopicID:       r.TopicID,
		ParentReplyID: r.ParentReplyID,
		Content:       r.Content,
		Author:        toAuthorResponse(r.Author),
		Attachments:   attachments,
		Likes:         r.Likes,
		IsLiked:       v.IsLiked,
		Edited:        r.Edited,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func replyResponseFor(r *domain.Reply, caller *domain.Profile) ReplyResponse {
	return toReplyResponse(service.ReplyView{
		Reply:   r,
		IsLiked: caller != nil && r.LikedBy.Has(caller.ID),
	})
}

func toToggleOutput(res domain.ToggleResult) *ToggleOutput {
	return &ToggleOutput{Body: ToggleResponse{Active: res.Active, Count: res.Count}}
}
