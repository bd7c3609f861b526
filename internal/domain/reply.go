package domain

// Reply is a comment on a topic. An empty ParentReplyID means top-level.
type Reply struct {
	Record
	TopicID       string       `json:"topic_id"`
	ParentReplyID string       `json:"parent_reply_id,omitempty"`
	Content       string       `json:"content"`
	Author        Author       `json:"author"`
	Attachments   []Attachment `json:"attachments,omitempty"`
	Likes         int          `json:"likes"`
	LikedBy       Membership   `json:"liked_by"`
	Reports       Reports      `json:"reports,omitempty"`
	Edited        bool         `json:"edited"`
}

// ToggleLike flips userID's like and keeps Likes equal to the liker count.
func (r *Reply) ToggleLike(userID string) ToggleResult {
	active := r.LikedBy.Toggle(userID)
	r.Likes = r.LikedBy.Len()
	return ToggleResult{Active: active, Count: r.Likes}
}

// IsAuthor reports whether userID wrote the reply.
func (r *Reply) IsAuthor(userID string) bool {
	return userID != "" && r.Author.ID == userID
}
