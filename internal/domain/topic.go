package domain

import "time"

// Topic is a top-level discussion thread.
type Topic struct {
	Record
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	Category       Category   `json:"category"`
	Author         Author     `json:"author"`
	Tags           []string   `json:"tags"`
	Views          int64      `json:"views"`
	Likes          int        `json:"likes"`
	ReplyCount     int        `json:"reply_count"`
	IsPinned       bool       `json:"is_pinned"`
	IsLocked       bool       `json:"is_locked"`
	LikedBy        Membership `json:"liked_by"`
	BookmarkedBy   Membership `json:"bookmarked_by"`
	Reports        Reports    `json:"reports,omitempty"`
	LastActivityAt time.Time  `json:"last_activity_at"`
}

// ToggleLike flips userID's like and keeps Likes equal to the liker count.
func (t *Topic) ToggleLike(userID string) ToggleResult {
	active := t.LikedBy.Toggle(userID)
	t.Likes = t.LikedBy.Len()
	return ToggleResult{Active: active, Count: t.Likes}
}

// ToggleBookmark flips userID's bookmark.
func (t *Topic) ToggleBookmark(userID string) ToggleResult {
	active := t.BookmarkedBy.Toggle(userID)
	return ToggleResult{Active: active, Count: t.BookmarkedBy.Len()}
}

// IsAuthor reports whether userID created the topic.
func (t *Topic) IsAuthor(userID string) bool {
	return userID != "" && t.Author.ID == userID
}
