package domain

import "time"

// Record is embedded by every stored document.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InitTimestamps stamps a new record.
func (r *Record) InitTimestamps(now time.Time) { r.CreatedAt, r.UpdatedAt = now, now }

// Touch marks the record modified.
func (r *Record) Touch(now time.Time) { r.UpdatedAt = now }
