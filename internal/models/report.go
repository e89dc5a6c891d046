package models

import "time"

// IssueKind classifies a per-unit problem recorded during a build.
type IssueKind string

const (
	IssueReadError           IssueKind = "read_error"
	IssueMalformedDocument   IssueKind = "malformed_document"
	IssueUnresolvedDirective IssueKind = "unresolved_directive"
)

// Issue is a single skipped unit or rendering warning.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Path    string    `json:"path"`
	ID      string    `json:"id,omitempty"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

// Report summarises one pipeline run so callers can audit what was left out.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Loaded     int       `json:"loaded"`
	Indexed    int       `json:"indexed"`
	Drafts     int       `json:"drafts"`
	Issues     []Issue   `json:"issues"`
}

// Count returns the number of issues of the given kind.
func (r *Report) Count(kind IssueKind) int {
	n := 0
	for _, is := range r.Issues {
		if is.Kind == kind {
			n++
		}
	}
	return n
}
