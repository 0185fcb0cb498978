package models

import (
	"time"
)

type LinkType string

const (
	GitHub        LinkType = "github"
	StackOverflow LinkType = "stackoverflow"
	Unknown       LinkType = "unknown"
)

// Link is a tracked resource. LastSeen is the high-water mark of reported
// changes; the zero value means nothing has been observed yet.
type Link struct {
	ID          int64
	URL         string
	Type        LinkType
	Tags        []string
	Subscribers []int64
	LastSeen    time.Time
	CreatedAt   time.Time
}

// Advance moves LastSeen forward to t and reports whether it moved.
func (l *Link) Advance(t time.Time) bool {
	if t.IsZero() {
		return false
	}

	if !l.LastSeen.IsZero() && !t.After(l.LastSeen) {
		return false
	}

	l.LastSeen = t

	return true
}

type ChangeKind string

const (
	ChangeRepository  ChangeKind = "repository"
	ChangeIssue       ChangeKind = "issue"
	ChangePullRequest ChangeKind = "pull_request"
	ChangeQuestion    ChangeKind = "question"
	ChangeAnswer      ChangeKind = "answer"
)

type ChangeEvent struct {
	LinkID      int64
	URL         string
	Kind        ChangeKind
	Title       string
	Author      string
	Description string
	UpdatedAt   time.Time
}

// LatestOf returns the maximum of the given timestamps. Zero values are the
// earliest possible instant, so a payload with no timestamps yields zero.
func LatestOf(candidates ...time.Time) time.Time {
	var latest time.Time

	for _, candidate := range candidates {
		if candidate.After(latest) {
			latest = candidate
		}
	}

	return latest
}
