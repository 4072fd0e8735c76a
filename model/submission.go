package model

import (
	"strings"
	"time"
)

// SubmissionKind distinguishes link submissions from uploaded files.
type SubmissionKind string

const (
	SubmissionLink       SubmissionKind = "link"
	SubmissionAttachment SubmissionKind = "attachment"
)

// Valid reports whether k is a known kind.
func (k SubmissionKind) Valid() bool {
	switch k {
	case SubmissionLink, SubmissionAttachment:
		return true
	}
	return false
}

// Submission is one entry of the append-only submission ledger.
type Submission struct {
	ID        int64
	AuthorID  string
	Kind      SubmissionKind
	Payload   string
	Tags      []string
	CreatedAt time.Time
	// PublicRef is the message ID of the post in the voting hall. Empty until published.
	PublicRef string
	// SourceRef is the message ID of the chat message that produced the submission.
	SourceRef string
	ThreadID  string
}

// TagString returns the tags the way they are stored: space separated.
func (s Submission) TagString() string {
	return strings.Join(s.Tags, " ")
}

// Published reports whether the submission has been bound to a public post.
func (s Submission) Published() bool {
	return s.PublicRef != ""
}

// VotingClosesAt returns the instant after which votes are rejected.
func (s Submission) VotingClosesAt(window time.Duration) time.Time {
	return s.CreatedAt.Add(window)
}
