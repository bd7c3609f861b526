package domain

import "time"

// Report is a moderation flag raised by one user against a topic or reply.
type Report struct {
	ReporterID string     `json:"reporter_id"`
	Reason     string     `json:"reason"`
	CreatedAt  time.Time  `json:"created_at"`
	Resolved   bool       `json:"resolved"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Reports holds at most one report per reporter.
type Reports []Report

// Upsert records a report from reporterID. A repeat report from the same
// reporter replaces the reason and time and reopens it.
func (rs *Reports) Upsert(reporterID, reason string, now time.Time) {
	for i := range *rs {
		r := &(*rs)[i]
		if r.ReporterID == reporterID {
			r.Reason = reason
			r.CreatedAt = now
			r.Resolved = false
			r.ResolvedBy = ""
			r.ResolvedAt = nil
			return
		}
	}
	*rs = append(*rs, Report{ReporterID: reporterID, Reason: reason, CreatedAt: now})
}

// Open returns the number of unresolved reports.
func (rs Reports) Open() int {
	n := 0
	for _, r := range rs {
		if !r.Resolved {
			n++
		}
	}
	return n
}

// ResolveAll marks every open report resolved and returns the reporters
// whose reports changed state.
func (rs Reports) ResolveAll(by string, now time.Time) []string {
	var reporters []string
	for i := range rs {
		if rs[i].Resolved {
			continue
		}
		rs[i].Resolved = true
		rs[i].ResolvedBy = by
		at := now
		rs[i].ResolvedAt = &at
		reporters = append(reporters, rs[i].ReporterID)
	}
	return reporters
}
