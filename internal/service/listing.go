package service

import (
	"cmp"
	"slices"

	"github.com/wellspringapp/wellspring-server/internal/domain"
)

// Topic sort orders.
const (
	SortNewest      = "newest"
	SortOldest      = "oldest"
	SortMostLiked   = "most_liked"
	SortMostViewed  = "most_viewed"
	SortMostReplies = "most_replies"
)

// Listing scopes.
const (
	ScopeAll        = "all"
	ScopeBookmarked = "bookmarked"
	ScopeMine       = "mine"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListTopicsQuery filters, orders and pages a topic listing.
type ListTopicsQuery struct {
	Category string `json:"category" validate:"omitempty,category"`
	Search   string `json:"search" validate:"max=200"`
	Sort     string `json:"sort" validate:"omitempty,oneof=newest oldest most_liked most_viewed most_replies"`
	Scope    string `json:"view" validate:"omitempty,oneof=all bookmarked mine"`
	Page     int    `json:"page" validate:"min=0,max=100000"`
	PageSize int    `json:"limit" validate:"min=0,max=100"`
}

func (q *ListTopicsQuery) applyDefaults() {
	if q.Sort == "" {
		q.Sort = SortNewest
	}
	if q.Scope == "" {
		q.Scope = ScopeAll
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
}

// cacheVariant names the cached ordering this query can be served from.
// Only unscoped, unsearched listings are cached.
func (q *ListTopicsQuery) cacheVariant() (string, bool) {
	if q.Scope != ScopeAll || q.Search != "" {
		return "", false
	}
	category := q.Category
	if category == "" {
		category = "any"
	}
	return category + ":" + q.Sort, true
}

// matches applies the category and scope filters.
func (q *ListTopicsQuery) matches(t *domain.Topic, uid string) bool {
	if q.Category != "" && string(t.Category) != q.Category {
		return false
	}
	switch q.Scope {
	case ScopeBookmarked:
		return t.BookmarkedBy.Has(uid)
	case ScopeMine:
		return t.Author.ID == uid
	}
	return true
}

// sortTopics orders topics in place. Pinned topics lead under the default
// newest ordering only. Ties fall back to newest first, then ID.
func sortTopics(topics []*domain.Topic, order string) {
	newestFirst := func(a, b *domain.Topic) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	}

	slices.SortFunc(topics, func(a, b *domain.Topic) int {
		switch order {
		case SortOldest:
			if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		case SortMostLiked:
			if c := cmp.Compare(b.Likes, a.Likes); c != 0 {
				return c
			}
		case SortMostViewed:
			if c := cmp.Compare(b.Views, a.Views); c != 0 {
				return c
			}
		case SortMostReplies:
			if c := cmp.Compare(b.ReplyCount, a.ReplyCount); c != 0 {
				return c
			}
		default:
			if a.IsPinned != b.IsPinned {
				if a.IsPinned {
					return -1
				}
				return 1
			}
		}
		return newestFirst(a, b)
	})
}

// pageBounds returns the slice bounds of page within total items.
func pageBounds(total, page, pageSize int) (start, end int) {
	start = min((page-1)*pageSize, total)
	end = min(start+pageSize, total)
	return start, end
}
