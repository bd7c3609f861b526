package domain

import (
	"slices"
	"strings"
	"time"
)

// Profile is the forum's local view of an external identity.
// Its ID is the identity ID issued by the auth provider.
type Profile struct {
	Record
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Avatar     string    `json:"avatar,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	Gender     string    `json:"gender,omitempty"`
	Role       Role      `json:"role"`
	Bookmarks  []string  `json:"bookmarks"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Snapshot returns the author snapshot stored on new topics and replies.
func (p *Profile) Snapshot() Author {
	return Author{
		ID:       p.ID,
		Username: p.Username,
		Avatar:   p.Avatar,
		JoinedAt: p.CreatedAt,
	}
}

// SetBookmark adds or removes topicID from the bookmark projection.
// It reports whether the list changed.
func (p *Profile) SetBookmark(topicID string, on bool) bool {
	i := slices.Index(p.Bookmarks, topicID)
	switch {
	case on && i < 0:
		p.Bookmarks = append(p.Bookmarks, topicID)
		return true
	case !on && i >= 0:
		p.Bookmarks = slices.Delete(p.Bookmarks, i, i+1)
		return true
	}
	return false
}

// EffectiveRole treats an unset role as RoleUser.
func (p *Profile) EffectiveRole() Role {
	if p.Role == "" {
		return RoleUser
	}
	return p.Role
}

// NormalizeUsername lowercases and trims a username for uniqueness checks.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
