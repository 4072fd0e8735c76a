package model

import "time"

// VoteKind represents how a vote was cast.
type VoteKind string

const (
	// VoteUnit is a reaction vote worth one point of score. It can be retracted.
	VoteUnit VoteKind = "unit"
	// VoteGraded is a 1-10 score cast with the vote command. It is final.
	VoteGraded VoteKind = "graded"
)

const (
	MinGradedScore = 1
	MaxGradedScore = 10
)

// Vote represents a single vote on a submission.
type Vote struct {
	SubmissionID int64
	VoterID      string
	Score        int
	Kind         VoteKind
	CastAt       time.Time
}

// ScoredSubmission is a submission together with its windowed vote total.
type ScoredSubmission struct {
	Submission
	Total int
	Votes int
}
