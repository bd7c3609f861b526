package service

import "github.com/wellspringapp/wellspring-server/internal/domain"

// TopicView is a topic with the caller's interaction flags.
// Handlers expose the flags instead of the membership sets.
type TopicView struct {
	*domain.Topic
	IsLiked      bool
	IsBookmarked bool
}

// ReplyView is a reply with the caller's like flag.
type ReplyView struct {
	*domain.Reply
	IsLiked bool
}

// TopicDetail is a topic with its replies, oldest first.
type TopicDetail struct {
	TopicView
	Replies []ReplyView
}

// TopicPage is one page of a topic listing.
type TopicPage struct {
	Items    []TopicView
	Total    int
	Page     int
	PageSize int
	HasMore  bool
}

func callerID(caller *domain.Profile) string {
	if caller == nil {
		return ""
	}
	return caller.ID
}

func viewTopic(t *domain.Topic, caller *domain.Profile) TopicView {
	uid := callerID(caller)
	return TopicView{
		Topic:        t,
		IsLiked:      uid != "" && t.LikedBy.Has(uid),
		IsBookmarked: uid != "" && t.BookmarkedBy.Has(uid),
	}
}

func viewReply(r *domain.Reply, caller *domain.Profile) ReplyView {
	uid := callerID(caller)
	return ReplyView{
		Reply:   r,
		IsLiked: uid != "" && r.LikedBy.Has(uid),
	}
}
