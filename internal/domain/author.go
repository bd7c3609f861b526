package domain

import "time"

// Author is a snapshot of the creator's profile taken when content is
// created. Later profile edits do not rewrite existing snapshots.
type Author struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

// Attachment references an uploaded file by URL.
type Attachment struct {
	URL         string `json:"url" validate:"required,url,max=2048"`
	Name        string `json:"name,omitempty" validate:"max=255"`
	ContentType string `json:"content_type,omitempty" validate:"max=100"`
}
