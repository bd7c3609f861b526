package domain

import "slices"

// Membership is a set of identity IDs (likers, bookmarkers).
// Counters are always derived from its length; never store them independently.
type Membership []string

// Has reports whether id is a member.
func (m Membership) Has(id string) bool {
	return slices.Contains(m, id)
}

// Len returns the number of members.
func (m Membership) Len() int {
	return len(m)
}

// Toggle flips id's membership and reports whether it is now a member.
// Two consecutive toggles with the same id restore the original set.
func (m *Membership) Toggle(id string) bool {
	if i := slices.Index(*m, id); i >= 0 {
		*m = slices.Delete(*m, i, i+1)
		return false
	}
	*m = append(*m, id)
	return true
}

// ToggleResult is returned by like and bookmark toggles.
type ToggleResult struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
}
