package search

import (
	"strings"

	"github.com/wellspringapp/wellspring-server/internal/domain"
)

// TopicDocument is the indexed projection of a topic.
type TopicDocument struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
	Author   string   `json:"author"`
}

// FromTopic builds the index document for a topic.
func FromTopic(t *domain.Topic) *TopicDocument {
	return &TopicDocument{
		ID:       t.ID,
		Title:    t.Title,
		Content:  t.Content,
		Tags:     t.Tags,
		Category: string(t.Category),
		Author:   strings.ToLower(t.Author.Username),
	}
}

// ToMap converts the document so field names match the mapping.
func (d *TopicDocument) ToMap() map[string]any {
	return map[string]any{
		"id":       d.ID,
		"title":    d.Title,
		"content":  d.Content,
		"tags":     d.Tags,
		"category": d.Category,
		"author":   d.Author,
	}
}
