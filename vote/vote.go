// Package vote validates, stores and aggregates votes on submissions.
package vote

import (
	"errors"
	"fmt"
	"time"

	"loopbot/apperror"
	"loopbot/db"
	"loopbot/model"
)

// Policy sets how many points a voter earns per vote kind.
type Policy struct {
	UnitCredit   int
	GradedCredit int
}

// DefaultPolicy credits graded votes only. Reaction votes are free.
var DefaultPolicy = Policy{UnitCredit: 0, GradedCredit: 1}

func (p Policy) creditFor(kind model.VoteKind) int {
	switch kind {
	case model.VoteUnit:
		return p.UnitCredit
	case model.VoteGraded:
		return p.GradedCredit
	}
	return 0
}

// Engine handles all vote-related operations.
type Engine struct {
	store  *db.Store
	window time.Duration
	policy Policy
}

// NewEngine creates a new vote engine. Votes are accepted until window after a submission was created.
func NewEngine(store *db.Store, window time.Duration, policy Policy) *Engine {
	return &Engine{store: store, window: window, policy: policy}
}

// Window returns the voting window.
func (e *Engine) Window() time.Duration {
	return e.window
}

// ValidateScore checks the score against the vote kind.
func ValidateScore(kind model.VoteKind, score int) error {
	switch kind {
	case model.VoteUnit:
		if score != 1 {
			return apperror.Validation(fmt.Sprintf("a reaction vote is worth 1, got %d", score))
		}
	case model.VoteGraded:
		if score < model.MinGradedScore || score > model.MaxGradedScore {
			return apperror.Validation(fmt.Sprintf("Score must be between %d and %d.", model.MinGradedScore, model.MaxGradedScore))
		}
	default:
		return apperror.Validation(fmt.Sprintf("unknown vote kind %q", kind))
	}
	return nil
}

// CastVote records voterID's vote on a submission. A vote cast exactly at the
// end of the window is accepted. Each voter may vote once per submission.
func (e *Engine) CastVote(submissionID int64, voterID string, kind model.VoteKind, score int, now time.Time) (*model.Vote, error) {
	if err := ValidateScore(kind, score); err != nil {
		return nil, err
	}

	sub, err := e.store.GetSubmission(submissionID)
	if err != nil {
		return nil, apperror.Storage("load submission", err)
	}
	if sub == nil {
		return nil, apperror.NotFound("Submission not found.")
	}

	if now.Sub(sub.CreatedAt) > e.window {
		return nil, apperror.New(apperror.ErrWindowClosed,
			fmt.Sprintf("voting on submission %d closed at %s", sub.ID, sub.VotingClosesAt(e.window).Format(time.RFC3339)), nil)
	}

	v := model.Vote{
		SubmissionID: sub.ID,
		VoterID:      voterID,
		Score:        score,
		Kind:         kind,
		CastAt:       now.UTC(),
	}

	var credit *db.Credit
	if delta := e.policy.creditFor(kind); delta > 0 {
		credit = &db.Credit{
			Key:    fmt.Sprintf("vote:%d:%s", sub.ID, voterID),
			UserID: voterID,
			Delta:  delta,
			Reason: "vote",
		}
	}

	if err := e.store.InsertVote(v, credit); err != nil {
		if errors.Is(err, db.ErrConflict) {
			return nil, apperror.Duplicate("You have already voted on this submission.")
		}
		return nil, apperror.Storage("record vote", err)
	}
	return &v, nil
}

// RetractVote removes a reaction vote. Removing a vote that does not exist,
// or a graded vote, does nothing.
func (e *Engine) RetractVote(submissionID int64, voterID string, score int) error {
	if _, err := e.store.DeleteUnitVote(submissionID, voterID, score); err != nil {
		return apperror.Storage("retract vote", err)
	}
	return nil
}

// ResolveSubmissionFor finds the submission a message refers to. directRef is a
// reply target or reacted message and is matched exactly. fallbackRef, typically
// the latest message in the channel, is consulted only when directRef is empty.
func (e *Engine) ResolveSubmissionFor(directRef, fallbackRef string) (*model.Submission, error) {
	ref := directRef
	if ref == "" {
		ref = fallbackRef
	}
	if ref == "" {
		return nil, nil
	}

	sub, err := e.store.FindByPublicRef(ref)
	if err != nil {
		return nil, apperror.Storage("resolve submission", err)
	}
	if sub != nil {
		return sub, nil
	}
	sub, err = e.store.FindBySourceRef(ref)
	if err != nil {
		return nil, apperror.Storage("resolve submission", err)
	}
	return sub, nil
}

// TopByVotes ranks submissions by the total score of votes cast in the last window.
func (e *Engine) TopByVotes(window time.Duration, limit int, now time.Time) ([]model.ScoredSubmission, error) {
	top, err := e.store.TopByVotes(now.Add(-window), limit)
	if err != nil {
		return nil, apperror.Storage("load trending submissions", err)
	}
	return top, nil
}

// Tally returns the total score and number of votes on a submission.
func (e *Engine) Tally(submissionID int64) (total, count int, err error) {
	total, count, err = e.store.Tally(submissionID)
	if err != nil {
		return 0, 0, apperror.Storage("tally votes", err)
	}
	return total, count, nil
}
